package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/Shopvora/internal/core"
	db "github.com/markdave123-py/Shopvora/internal/core/database"
	"github.com/markdave123-py/Shopvora/internal/models"
)

// DefaultSubscriberSource tags signups that did not say where they came from.
const DefaultSubscriberSource = "website"

type ContactService struct {
	db core.DbClient
}

func NewContactService(db core.DbClient) *ContactService {
	return &ContactService{db: db}
}

// SubmitContact stores a contact form; a nil error means it was saved.
func (s *ContactService) SubmitContact(ctx context.Context, m models.ContactMessage) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return Invalid("name", "Please enter your name.")
	}
	email, err := NormalizeEmail(m.Email)
	if err != nil {
		return err
	}
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		subject = models.DefaultContactSubject
	}
	if !models.IsContactSubject(subject) {
		return Invalid("subject", "Please choose a subject.")
	}
	body := strings.TrimSpace(m.Message)
	if body == "" {
		return Invalid("message", "Please enter a message.")
	}
	row := &models.ContactRow{Name: name, Email: email, Subject: subject, Message: body}
	if err := s.db.InsertContact(ctx, row); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetContactMessages lists messages, newest first.
func (s *ContactService) GetContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	rows, err := s.db.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := make([]models.ContactMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ContactMessage{
			ID: r.ID, Name: r.Name, Email: r.Email, Subject: r.Subject, Message: r.Message, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *ContactService) DeleteContactMessage(ctx context.Context, id string) error {
	if err := s.db.DeleteContact(ctx, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

type NewsletterService struct {
	db core.DbClient
}

func NewNewsletterService(db core.DbClient) *NewsletterService {
	return &NewsletterService{db: db}
}

// SubscribeToNewsletter reports ErrAlreadySubscribed when the address is on
// the list already.
func (s *NewsletterService) SubscribeToNewsletter(ctx context.Context, email, source string) error {
	addr, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSubscriberSource
	}
	if err := s.db.InsertSubscriber(ctx, &models.SubscriberRow{Email: addr, Source: source}); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (s *NewsletterService) GetSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := s.db.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	out := make([]models.Subscriber, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Subscriber{ID: r.ID, Email: r.Email, Source: r.Source, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (s *NewsletterService) DeleteSubscriber(ctx context.Context, id string) error {
	if err := s.db.DeleteSubscriber(ctx, id); err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}
