package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type criteriaRepo struct{ *repos }

func (r criteriaRepo) Create(_ context.Context, c *entities.MasteryCriterion) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if c.ID == 0 {
		c.ID = r.st.newID()
	}
	r.st.criteria[c.ID] = *c
	return nil
}

func (r criteriaRepo) GetByID(_ context.Context, id int64) (*entities.MasteryCriterion, error) {
	c, ok := r.st.criteria[id]
	if !ok {
		return nil, repository.ErrCriterionNotFound
	}
	return &c, nil
}

func (r criteriaRepo) ListBySection(_ context.Context, sectionID int64) ([]*entities.MasteryCriterion, error) {
	return r.filter(func(c entities.MasteryCriterion) bool {
		return c.SectionID == sectionID
	}), nil
}

func (r criteriaRepo) ListBySectionStage(_ context.Context, sectionID int64, stage entities.UueStage) ([]*entities.MasteryCriterion, error) {
	return r.filter(func(c entities.MasteryCriterion) bool {
		return c.SectionID == sectionID && c.Stage == stage
	}), nil
}

func (r criteriaRepo) filter(keep func(entities.MasteryCriterion) bool) []*entities.MasteryCriterion {
	var out []*entities.MasteryCriterion
	for _, c := range r.st.criteria {
		if keep(c) {
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *entities.MasteryCriterion) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

type masteryRepo struct{ *repos }

func (r masteryRepo) CreateIfAbsent(_ context.Context, m *entities.UserCriterionMastery) (bool, error) {
	if err := r.checkWrite(); err != nil {
		return false, err
	}
	key := masteryKey{m.UserID, m.CriterionID}
	if _, ok := r.st.masteries[key]; ok {
		return false, nil
	}
	r.st.masteries[key] = *m
	return true, nil
}

func (r masteryRepo) Get(_ context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	m, ok := r.st.masteries[masteryKey{userID, criterionID}]
	if !ok {
		return nil, repository.ErrMasteryNotFound
	}
	return &m, nil
}

// GetForUpdate needs no row lock here: the store mutex already serializes
// write transactions.
func (r masteryRepo) GetForUpdate(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, criterionID)
}

func (r masteryRepo) Update(_ context.Context, m *entities.UserCriterionMastery) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	key := masteryKey{m.UserID, m.CriterionID}
	if _, ok := r.st.masteries[key]; !ok {
		return repository.ErrMasteryNotFound
	}
	r.st.masteries[key] = *m
	return nil
}

func (r masteryRepo) ListBySection(_ context.Context, userID, sectionID int64) ([]*entities.UserCriterionMastery, error) {
	return r.filter(func(m entities.UserCriterionMastery) bool {
		return m.UserID == userID && m.SectionID == sectionID
	}), nil
}

func (r masteryRepo) ListByUser(_ context.Context, userID int64) ([]*entities.UserCriterionMastery, error) {
	return r.filter(func(m entities.UserCriterionMastery) bool {
		return m.UserID == userID
	}), nil
}

func (r masteryRepo) ListUserIDs(_ context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	for key := range r.st.masteries {
		seen[key.userID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (r masteryRepo) filter(keep func(entities.UserCriterionMastery) bool) []*entities.UserCriterionMastery {
	var out []*entities.UserCriterionMastery
	for _, m := range r.st.masteries {
		if keep(m) {
			out = append(out, &m)
		}
	}
	slices.SortFunc(out, func(a, b *entities.UserCriterionMastery) int {
		return cmp.Or(
			cmp.Compare(a.UserID, b.UserID),
			cmp.Compare(a.CriterionID, b.CriterionID),
		)
	})
	return out
}

type sectionRepo struct{ *repos }

func (r sectionRepo) Create(_ context.Context, s *entities.Section) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if s.ID == 0 {
		s.ID = r.st.newID()
	}
	r.st.sections[s.ID] = *s
	return nil
}

func (r sectionRepo) GetByID(_ context.Context, id int64) (*entities.Section, error) {
	s, ok := r.st.sections[id]
	if !ok {
		return nil, repository.ErrSectionNotFound
	}
	return &s, nil
}

type settingsRepo struct{ *repos }

func (r settingsRepo) GetByUserID(_ context.Context, userID int64) (*entities.UserSettings, error) {
	s, ok := r.st.settings[userID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	return &s, nil
}

func (r settingsRepo) Upsert(_ context.Context, s *entities.UserSettings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	r.st.settings[s.UserID] = *s
	return nil
}

func (r settingsRepo) ListUserIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(r.st.settings))
	for id := range r.st.settings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
