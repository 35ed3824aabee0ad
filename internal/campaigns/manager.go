package campaigns

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whatsapp-console/internal/backend"
	"whatsapp-console/internal/models"
)

var (
	ErrTemplateRequired = errors.New("a template must be selected")
	ErrNoRunPayload     = errors.New("campaign has no stored run payload")
	ErrNotFound         = errors.New("campaign not found")
	ErrUnknownTemplate  = errors.New("template not found")
)

// Backend is the subset of the backend client used by the campaigns page.
type Backend interface {
	Campaigns(ctx context.Context) ([]models.Campaign, error)
	Templates(ctx context.Context) ([]models.Template, error)
	Contacts(ctx context.Context) ([]models.Contact, error)
	CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error)
	RunCampaign(ctx context.Context, id string, payload models.RunPayload) error
	DeleteCampaign(ctx context.Context, id string) error
}

// Manager holds the campaigns page state: campaigns, templates and contacts.
type Manager struct {
	backend Backend
	logger  *zap.Logger

	mu        sync.RWMutex
	campaigns []models.Campaign
	templates []models.Template
	contacts  []models.Contact
	// payloads keeps the run payload frozen at creation, keyed by campaign id,
	// for backends that do not echo run_payload in the campaign list.
	payloads map[string]models.RunPayload
}

func NewManager(b Backend, logger *zap.Logger) *Manager {
	return &Manager{
		backend:  b,
		logger:   logger.Named("campaigns"),
		payloads: make(map[string]models.RunPayload),
	}
}

// Load fetches campaigns, templates and contacts in parallel and replaces the
// local lists once all three succeed.
func (m *Manager) Load(ctx context.Context) error {
	var (
		campaigns []models.Campaign
		tmpls     []models.Template
		contacts  []models.Contact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		campaigns, err = m.backend.Campaigns(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tmpls, err = m.backend.Templates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = m.backend.Contacts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load campaigns page: %w", err)
	}

	m.mu.Lock()
	for i := range campaigns {
		if campaigns[i].RunPayload != nil {
			continue
		}
		if payload, ok := m.payloads[campaigns[i].ID]; ok {
			campaigns[i].RunPayload = &payload
		}
	}
	m.campaigns, m.templates, m.contacts = campaigns, tmpls, contacts
	m.mu.Unlock()
	return nil
}

func (m *Manager) Campaigns() []models.Campaign {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Campaign{}, m.campaigns...)
}

func (m *Manager) Templates() []models.Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Template{}, m.templates...)
}

func (m *Manager) Contacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Contact{}, m.contacts...)
}

func (m *Manager) Template(id string) (models.Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.templates {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}

func (m *Manager) Campaign(id string) (models.Campaign, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.campaigns {
		if c.ID == id {
			return c, true
		}
	}
	return models.Campaign{}, false
}

// Draft rebuilds the campaign form state from a submitted form: the template is
// looked up in the loaded list, then variables and media are applied.
func (m *Manager) Draft(form Form) (*Draft, error) {
	if form.TemplateID == "" {
		return nil, ErrTemplateRequired
	}
	tmpl, ok := m.Template(form.TemplateID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, form.TemplateID)
	}

	d := &Draft{
		Name:        form.Name,
		Description: form.Description,
		ContactIDs:  form.ContactIDs,
		ScheduledAt: form.ScheduledAt,
		CreatedBy:   form.CreatedBy,
	}
	d.SelectTemplate(tmpl)
	if err := d.vars.SetAll(form.Variables); err != nil {
		return nil, err
	}
	d.AttachMedia(form.MediaURL)
	return d, nil
}

// Create submits the draft and prepends the new campaign to the local list.
// The stored run payload is the one frozen from the draft, even when the
// backend does not echo it back.
func (m *Manager) Create(ctx context.Context, d *Draft) (*models.Campaign, error) {
	req, err := d.Request()
	if err != nil {
		return nil, err
	}

	created, err := m.backend.CreateCampaign(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create campaign %q: %w", req.Name, err)
	}
	if created.RunPayload == nil {
		payload := req.RunPayload
		created.RunPayload = &payload
	}

	m.mu.Lock()
	m.payloads[created.ID] = *created.RunPayload
	m.campaigns = append([]models.Campaign{*created}, m.campaigns...)
	m.mu.Unlock()

	m.logger.Info("campaign created",
		zap.String("campaign_id", created.ID),
		zap.String("template", req.TemplateName),
		zap.Int("contacts", len(req.ContactIDs)),
	)
	return created, nil
}

// Run replays the campaign's stored run payload. It never rebuilds the payload
// from the current template state.
func (m *Manager) Run(ctx context.Context, id string) error {
	campaign, ok := m.Campaign(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if campaign.RunPayload == nil {
		return fmt.Errorf("%w: %s", ErrNoRunPayload, id)
	}

	if err := m.backend.RunCampaign(ctx, id, *campaign.RunPayload); err != nil {
		return fmt.Errorf("run campaign %s: %w", id, err)
	}
	m.logger.Info("campaign run requested", zap.String("campaign_id", id))
	return nil
}

// Delete removes the campaign remotely and from the local list. A campaign the
// backend no longer knows is dropped locally and reported as ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.backend.DeleteCampaign(ctx, id)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}

	m.mu.Lock()
	delete(m.payloads, id)
	for i, c := range m.campaigns {
		if c.ID == id {
			m.campaigns = append(m.campaigns[:i:i], m.campaigns[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Stats summarizes the local campaign list as of now.
func (m *Manager) Stats(now time.Time) Stats {
	return Summarize(m.Campaigns(), now)
}
