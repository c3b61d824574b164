package mock

import (
	"context"
	"fmt"
	"time"

	"kiosk/internal/domain"
)

const organizer = "Centro Cultural Banreservas"

// DemoCodes are confirmation codes seeded for demos and manual testing.
var DemoCodes = []string{"ABC123XY", "DEF456ZW", "GHI789UV", "TEST1234"}

// SeedEvents returns the example events, dated relative to now.
func SeedEvents(now time.Time) []domain.Event {
	day := 24 * time.Hour
	at := func(days int, hour int) time.Time {
		d := now.Add(time.Duration(days) * day)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
	}
	return []domain.Event{
		{
			ID:              "evento-1",
			Title:           "Concierto de Piano Clásico",
			Description:     "Una velada musical especial con obras de los grandes maestros del piano clásico.",
			Type:            "musica",
			Category:        "Música",
			Date:            at(7, 19),
			Location:        "Auditorio Principal",
			Capacity:        200,
			RegisteredCount: 155,
			Status:          domain.EventActive,
			Image:           "/images/piano-concert.jpg",
			DurationMinutes: 120,
			Organizer:       organizer,
		},
		{
			ID:              "evento-2",
			Title:           "Exposición de Arte Contemporáneo",
			Description:     "Muestra colectiva de artistas dominicanos contemporáneos con obras inéditas.",
			Type:            "arte",
			Category:        "Arte",
			Date:            at(3, 10),
			Location:        "Galería Principal",
			Capacity:        100,
			RegisteredCount: 80,
			Status:          domain.EventActive,
			Image:           "/images/art-exhibition.jpg",
			DurationMinutes: 180,
			Organizer:       organizer,
		},
		{
			ID:              "evento-3",
			Title:           "Taller de Escritura Creativa",
			Description:     "Aprende técnicas de escritura creativa con autores reconocidos.",
			Type:            "taller",
			Category:        "Literatura",
			Date:            at(10, 15),
			Location:        "Aula 1",
			Capacity:        25,
			RegisteredCount: 17,
			Status:          domain.EventActive,
			Price:           500,
			Image:           "/images/writing-workshop.jpg",
			DurationMinutes: 240,
			Organizer:       organizer,
		},
		{
			ID:              "evento-4",
			Title:           "Festival de Danza Folclórica",
			Description:     "Celebración de nuestras tradiciones dancísticas con grupos locales.",
			Type:            "danza",
			Category:        "Danza",
			Date:            at(14, 18),
			Location:        "Teatro al Aire Libre",
			Capacity:        300,
			RegisteredCount: 150,
			Status:          domain.EventActive,
			Image:           "/images/folk-dance.jpg",
			DurationMinutes: 90,
			Organizer:       organizer,
		},
		{
			ID:              "evento-5",
			Title:           "Conferencia: Historia del Arte Dominicano",
			Description:     "Un recorrido por la evolución del arte en República Dominicana.",
			Type:            "conferencia",
			Category:        "Educación",
			Date:            at(21, 17),
			Location:        "Auditorio Secundario",
			Capacity:        150,
			RegisteredCount: 75,
			Status:          domain.EventActive,
			Image:           "/images/art-conference.jpg",
			DurationMinutes: 90,
			Organizer:       organizer,
		},
	}
}

type seedRegistration struct {
	code    string
	eventID string
	visitor domain.Visitor
}

func seedRegistrations(now time.Time) []seedRegistration {
	yesterday := now.Add(-24 * time.Hour)
	return []seedRegistration{
		{code: "ABC123XY", eventID: "evento-1", visitor: domain.Visitor{
			ID: "visitor-1", Name: "María González", Email: "maria.gonzalez@email.com",
			Phone: "809-987-6543", Age: 28, Gender: domain.GenderFemale, RegisteredAt: yesterday,
		}},
		{code: "DEF456ZW", eventID: "evento-2", visitor: domain.Visitor{
			ID: "visitor-2", Name: "Carlos Rodríguez", Email: "carlos.rodriguez@email.com",
			Phone: "809-555-1234", Age: 42, Gender: domain.GenderMale, RegisteredAt: yesterday,
		}},
		{code: "GHI789UV", eventID: "evento-1", visitor: domain.Visitor{
			ID: "visitor-4", Name: "Juan Pérez", Email: "juan.perez@email.com",
			Phone: "809-123-4567", Age: 35, Gender: domain.GenderMale, RegisteredAt: yesterday,
		}},
		{code: "TEST1234", eventID: "evento-3", visitor: domain.Visitor{
			ID: "visitor-3", Name: "Ana Martínez", Email: "ana.martinez@email.com",
			Phone: "809-777-8888", Age: 31, Gender: domain.GenderFemale, RegisteredAt: yesterday,
		}},
	}
}

// Seed loads the example events and the demo registrations into store. Demo
// registrations count against event capacity like any other. A store that
// already holds events is left untouched.
func Seed(ctx context.Context, store Store, now time.Time) error {
	existing, err := store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("seed: list events: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, e := range SeedEvents(now) {
		if err := store.PutEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	for i, sr := range seedRegistrations(now) {
		reg := domain.Registration{
			ID:               fmt.Sprintf("registration-%d", i+1),
			EventID:          sr.eventID,
			VisitorID:        sr.visitor.ID,
			ConfirmationCode: sr.code,
			RegisteredAt:     sr.visitor.RegisteredAt,
			Status:           domain.RegistrationConfirmed,
		}
		if err := store.Register(ctx, sr.visitor, reg); err != nil {
			return fmt.Errorf("seed registration %s: %w", sr.code, err)
		}
	}
	return nil
}
