// Package stream turns record-store change-feed batches into change events
// for the notification pipeline.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hrms/internal/domain/employee"
	"hrms/internal/events"
	"hrms/internal/recordstore"
)

// Publisher enqueues one change event. A failed publish must be returned as
// an error so the feed batch is retried rather than silently dropped.
type Publisher interface {
	Publish(ctx context.Context, key string, event events.ChangeEvent) error
}

// Detector reacts to the change feed. Inserts of the personal-data section
// become WELCOME events; modifications become per-entity consolidated
// UPDATE diffs.
type Detector struct {
	store     recordstore.Store
	publisher Publisher
}

func NewDetector(store recordstore.Store, publisher Publisher) *Detector {
	return &Detector{store: store, publisher: publisher}
}

// ProcessBatch handles one ordered feed batch. All MODIFY diffs observed
// for the same entity within the batch are merged into a single UPDATE
// event, so one logical write transaction produces one notification no
// matter how many sections it touched. Any error aborts the batch without
// committing it.
func (d *Detector) ProcessBatch(ctx context.Context, batch []recordstore.Change) error {
	updates := make(map[string]*events.ChangeEvent)
	var updateOrder []string

	for _, change := range batch {
		switch change.Kind {
		case recordstore.EventInsert:
			if change.SK != employee.SectionPersonalData.Key() {
				continue
			}
			event, err := d.welcomeEvent(ctx, change)
			if err != nil {
				return err
			}
			if err := d.publisher.Publish(ctx, change.PK, event); err != nil {
				return fmt.Errorf("publish welcome for %s: %w", change.PK, err)
			}

		case recordstore.EventModify:
			if !strings.HasPrefix(change.SK, employee.SectionKeyPrefix) {
				continue
			}
			event, ok := updates[change.PK]
			if !ok {
				event = &events.ChangeEvent{
					Type:          events.TypeUpdate,
					EmployeeID:    change.PK,
					ChangedFields: make(map[string]events.FieldChange),
				}
				updates[change.PK] = event
				updateOrder = append(updateOrder, change.PK)
			}
			diffInto(event.ChangedFields, change)

		default:
			slog.Debug("skipping feed event", "kind", change.Kind, "pk", change.PK)
		}
	}

	for _, pk := range updateOrder {
		event := updates[pk]
		if len(event.ChangedFields) == 0 {
			// A rewrite with identical values: nothing to report.
			continue
		}
		if err := d.publisher.Publish(ctx, pk, *event); err != nil {
			return fmt.Errorf("publish update for %s: %w", pk, err)
		}
	}
	return nil
}

// welcomeEvent shapes a brand-new employee into a WELCOME message. The
// sibling sections are fetched by direct key lookup; depending on write
// ordering they may not be visible yet, in which case their fields degrade
// to empty values. Sensitive values stay ciphertext here; the dispatcher
// decrypts.
func (d *Detector) welcomeEvent(ctx context.Context, change recordstore.Change) (events.ChangeEvent, error) {
	event := events.ChangeEvent{
		Type:       events.TypeWelcome,
		EmployeeID: change.PK,
		FirstName:  docString(change.New, "firstName"),
		LastName:   docString(change.New, "lastName"),
	}

	contact, err := d.lookupSibling(ctx, change.PK, employee.SectionContactInfo)
	if err != nil {
		return events.ChangeEvent{}, err
	}
	event.Email = docString(contact, "email")

	contract, err := d.lookupSibling(ctx, change.PK, employee.SectionContractDetails)
	if err != nil {
		return events.ChangeEvent{}, err
	}
	event.Role = docString(contract, "role")
	event.Department = docString(contract, "department")
	event.JobLevel = docString(contract, "jobLevel")

	return event, nil
}

func (d *Detector) lookupSibling(ctx context.Context, pk string, section employee.Section) (recordstore.Doc, error) {
	item, err := d.store.Get(ctx, recordstore.Key{PK: pk, SK: section.Key()})
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.Doc, nil
}

// diffInto records every field whose value differs between the old and new
// image, keyed by "<section name>.<field>" to disambiguate same-named
// fields across sections.
func diffInto(changed map[string]events.FieldChange, change recordstore.Change) {
	label := employee.SectionLabel(change.SK)
	seen := make(map[string]struct{}, len(change.New)+len(change.Old))
	for field := range change.New {
		seen[field] = struct{}{}
	}
	for field := range change.Old {
		seen[field] = struct{}{}
	}
	for field := range seen {
		oldValue := change.Old[field]
		newValue := change.New[field]
		if recordstore.ValueEqual(oldValue, newValue) {
			continue
		}
		changed[label+"."+field] = events.FieldChange{Old: oldValue, New: newValue}
	}
}

func docString(doc recordstore.Doc, key string) string {
	if doc == nil {
		return ""
	}
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
