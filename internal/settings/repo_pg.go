package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo is the Postgres-backed Repo. Vocabulary lists are stored as JSONB
// arrays in the tenant_settings table.
type PGRepo struct {
	DB *sql.DB
}

// Get returns the settings for a family.
func (r *PGRepo) Get(ctx context.Context, familyID string) (Settings, error) {
	const q = `
SELECT family_id, event_types, sender_names, recipient_names, created_at, updated_at
FROM tenant_settings
WHERE family_id = $1`

	var (
		s              Settings
		eventTypes     []byte
		senderNames    []byte
		recipientNames []byte
	)
	err := r.DB.QueryRowContext(ctx, q, familyID).Scan(
		&s.FamilyID, &eventTypes, &senderNames, &recipientNames, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings get family=%s: %w", familyID, err)
	}

	if s.EventTypes, err = decodeList(eventTypes); err != nil {
		return Settings{}, fmt.Errorf("settings get family=%s: event_types: %w", familyID, err)
	}
	if s.SenderNames, err = decodeList(senderNames); err != nil {
		return Settings{}, fmt.Errorf("settings get family=%s: sender_names: %w", familyID, err)
	}
	if s.RecipientNames, err = decodeList(recipientNames); err != nil {
		return Settings{}, fmt.Errorf("settings get family=%s: recipient_names: %w", familyID, err)
	}
	return s, nil
}

// Upsert stores the settings for a family.
func (r *PGRepo) Upsert(ctx context.Context, s Settings) error {
	const q = `
INSERT INTO tenant_settings (family_id, event_types, sender_names, recipient_names, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (family_id) DO UPDATE SET
	event_types = EXCLUDED.event_types,
	sender_names = EXCLUDED.sender_names,
	recipient_names = EXCLUDED.recipient_names,
	updated_at = NOW()`

	eventTypes, err := encodeList(s.EventTypes)
	if err != nil {
		return fmt.Errorf("settings upsert family=%s: event_types: %w", s.FamilyID, err)
	}
	senderNames, err := encodeList(s.SenderNames)
	if err != nil {
		return fmt.Errorf("settings upsert family=%s: sender_names: %w", s.FamilyID, err)
	}
	recipientNames, err := encodeList(s.RecipientNames)
	if err != nil {
		return fmt.Errorf("settings upsert family=%s: recipient_names: %w", s.FamilyID, err)
	}

	if _, err := r.DB.ExecContext(ctx, q, s.FamilyID, eventTypes, senderNames, recipientNames); err != nil {
		return fmt.Errorf("settings upsert family=%s: %w", s.FamilyID, err)
	}
	return nil
}

// Append merges vocabulary additions into the family's row inside one
// transaction, holding the row lock across the read-merge-write so a
// concurrent append cannot be lost.
func (r *PGRepo) Append(ctx context.Context, familyID string, vals Values) error {
	if vals.IsZero() {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settings append family=%s: begin: %w", familyID, err)
	}
	defer tx.Rollback()

	const lockQ = `
SELECT event_types, sender_names, recipient_names
FROM tenant_settings
WHERE family_id = $1
FOR UPDATE`

	var eventTypes, senderNames, recipientNames []byte
	err = tx.QueryRowContext(ctx, lockQ, familyID).Scan(&eventTypes, &senderNames, &recipientNames)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("settings append family=%s: lock: %w", familyID, err)
	}

	current := Settings{FamilyID: familyID}
	if current.EventTypes, err = decodeList(eventTypes); err != nil {
		return fmt.Errorf("settings append family=%s: event_types: %w", familyID, err)
	}
	if current.SenderNames, err = decodeList(senderNames); err != nil {
		return fmt.Errorf("settings append family=%s: sender_names: %w", familyID, err)
	}
	if current.RecipientNames, err = decodeList(recipientNames); err != nil {
		return fmt.Errorf("settings append family=%s: recipient_names: %w", familyID, err)
	}

	merged, changed := mergeValues(current, vals)
	if !changed {
		return tx.Commit()
	}

	const updateQ = `
UPDATE tenant_settings
SET event_types = $2, sender_names = $3, recipient_names = $4, updated_at = NOW()
WHERE family_id = $1`

	encodedEvents, err := encodeList(merged.EventTypes)
	if err != nil {
		return fmt.Errorf("settings append family=%s: event_types: %w", familyID, err)
	}
	encodedSenders, err := encodeList(merged.SenderNames)
	if err != nil {
		return fmt.Errorf("settings append family=%s: sender_names: %w", familyID, err)
	}
	encodedRecipients, err := encodeList(merged.RecipientNames)
	if err != nil {
		return fmt.Errorf("settings append family=%s: recipient_names: %w", familyID, err)
	}

	if _, err := tx.ExecContext(ctx, updateQ, familyID, encodedEvents, encodedSenders, encodedRecipients); err != nil {
		return fmt.Errorf("settings append family=%s: update: %w", familyID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settings append family=%s: commit: %w", familyID, err)
	}
	return nil
}

// Delete removes the settings for a family.
func (r *PGRepo) Delete(ctx context.Context, familyID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM tenant_settings WHERE family_id = $1`, familyID); err != nil {
		return fmt.Errorf("settings delete family=%s: %w", familyID, err)
	}
	return nil
}

func encodeList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func decodeList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

var _ Repo = (*PGRepo)(nil)
