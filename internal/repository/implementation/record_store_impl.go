package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"crm-assistant-be/internal/repository/contract"
	"crm-assistant-be/internal/repository/specification"
	"crm-assistant-be/pkg/store"
)

// gormRecordStore projects the CRM entities into the flat read-only
// records the assistant core resolves references against
type gormRecordStore struct {
	contacts   contract.IContactRepository
	accounts   contract.IAccountRepository
	deals      contract.IDealRepository
	activities contract.IActivityRepository
	members    contract.ITeamMemberRepository
}

func NewGormRecordStore(
	contacts contract.IContactRepository,
	accounts contract.IAccountRepository,
	deals contract.IDealRepository,
	activities contract.IActivityRepository,
	members contract.ITeamMemberRepository,
) store.RecordStore {
	return &gormRecordStore{
		contacts:   contacts,
		accounts:   accounts,
		deals:      deals,
		activities: activities,
		members:    members,
	}
}

func (s *gormRecordStore) ResolveTeamID(ctx context.Context, userID string) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	member, err := s.members.FindOne(ctx, specification.ByUserID(uid))
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", fmt.Errorf("user %s has no team membership", userID)
	}
	return member.TeamId.String(), nil
}

func (s *gormRecordStore) ListByKind(ctx context.Context, teamID string, kind store.RecordKind) ([]store.Record, error) {
	tid, err := uuid.Parse(teamID)
	if err != nil {
		return nil, fmt.Errorf("invalid team id %q: %w", teamID, err)
	}

	switch kind {
	case store.KindContact:
		return s.listContacts(ctx, tid)
	case store.KindAccount:
		return s.listAccounts(ctx, tid)
	case store.KindDeal:
		return s.listDeals(ctx, tid)
	case store.KindActivity:
		return s.listActivities(ctx, tid)
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

func (s *gormRecordStore) listContacts(ctx context.Context, teamID uuid.UUID) ([]store.Record, error) {
	contacts, err := s.contacts.FindAll(ctx,
		specification.ByTeamID(teamID),
		specification.NotDeleted(),
		specification.OrderBy("created_at", "desc"),
	)
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(contacts))
	for _, c := range contacts {
		records = append(records, store.Record{
			ID:    c.Id.String(),
			Kind:  store.KindContact,
			Name:  strings.TrimSpace(c.FirstName + " " + c.LastName),
			Email: c.Email,
			Fields: map[string]interface{}{
				"phone":   c.Phone,
				"company": c.Company,
			},
		})
	}
	return records, nil
}

func (s *gormRecordStore) listAccounts(ctx context.Context, teamID uuid.UUID) ([]store.Record, error) {
	accounts, err := s.accounts.FindAll(ctx,
		specification.ByTeamID(teamID),
		specification.NotDeleted(),
		specification.OrderBy("created_at", "desc"),
	)
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, store.Record{
			ID:   a.Id.String(),
			Kind: store.KindAccount,
			Name: a.Name,
			Fields: map[string]interface{}{
				"industry": a.Industry,
				"website":  a.Website,
			},
		})
	}
	return records, nil
}

func (s *gormRecordStore) listDeals(ctx context.Context, teamID uuid.UUID) ([]store.Record, error) {
	deals, err := s.deals.FindAll(ctx,
		specification.ByTeamID(teamID),
		specification.NotDeleted(),
		specification.OrderBy("created_at", "desc"),
	)
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(deals))
	for _, d := range deals {
		records = append(records, store.Record{
			ID:   d.Id.String(),
			Kind: store.KindDeal,
			Name: d.Name,
			Fields: map[string]interface{}{
				"stage":  d.Stage,
				"amount": d.Amount,
			},
		})
	}
	return records, nil
}

func (s *gormRecordStore) listActivities(ctx context.Context, teamID uuid.UUID) ([]store.Record, error) {
	activities, err := s.activities.FindAll(ctx,
		specification.ByTeamID(teamID),
		specification.OrderBy("created_at", "desc"),
	)
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(activities))
	for _, a := range activities {
		fields := map[string]interface{}{
			"type": a.Type,
		}
		if len(a.Metadata) > 0 {
			var meta map[string]interface{}
			if err := json.Unmarshal(a.Metadata, &meta); err == nil {
				for k, v := range meta {
					fields[k] = v
				}
			}
		}
		records = append(records, store.Record{
			ID:     a.Id.String(),
			Kind:   store.KindActivity,
			Name:   a.Subject,
			Fields: fields,
		})
	}
	return records, nil
}
