package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"archive-backend/internal/documents"
	"archive-backend/internal/settings"
)

// Service migrates a guest tenant's archive into the caller's family after
// sign-in.
type Service struct {
	DocRepo  documents.Repo
	Settings *settings.Service
}

// ClaimResult reports what a claim moved.
type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
}

func NewService(docRepo documents.Repo, settingsSvc *settings.Service) *Service {
	return &Service{DocRepo: docRepo, Settings: settingsSvc}
}

// ClaimGuest moves every document owned by the guest tenant into the given
// family and folds the guest vocabulary into the family's settings. The
// document move is transactional on PostgreSQL; the vocabulary merge is
// additive, so repeating a half-finished claim is safe.
func (s *Service) ClaimGuest(ctx context.Context, guestFamilyID, familyID, userID string) (ClaimResult, error) {
	if strings.TrimSpace(guestFamilyID) == "" || strings.TrimSpace(familyID) == "" || strings.TrimSpace(userID) == "" {
		return ClaimResult{}, errors.New("guestFamilyID, familyID and userID are required")
	}

	var (
		moved int
		err   error
	)
	if docPG, ok := s.DocRepo.(*documents.PGRepo); ok && docPG != nil && docPG.DB != nil {
		moved, err = claimWithTx(ctx, docPG.DB, guestFamilyID, familyID, userID)
	} else {
		moved, err = claimDocs(ctx, s.DocRepo, guestFamilyID, familyID, userID)
	}
	if err != nil {
		return ClaimResult{}, err
	}

	if s.Settings != nil {
		if err := s.Settings.ClaimGuest(ctx, guestFamilyID, familyID); err != nil {
			return ClaimResult{}, err
		}
	}
	return ClaimResult{MigratedDocuments: moved}, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestFamilyID, familyID, userID string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE documents SET family_id = $1, uploader_id = $2 WHERE family_id = $3 AND deleted_at IS NULL`, familyID, userID, guestFamilyID)
	if err != nil {
		return 0, err
	}
	moved, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(moved), nil
}

type guestDocClaimer interface {
	ClaimGuest(ctx context.Context, guestFamilyID, familyID, userID string) (int, error)
}

func claimDocs(ctx context.Context, repo documents.Repo, guestFamilyID, familyID, userID string) (int, error) {
	if claimer, ok := repo.(guestDocClaimer); ok {
		return claimer.ClaimGuest(ctx, guestFamilyID, familyID, userID)
	}
	return 0, errors.New("documents repo does not support claim")
}
