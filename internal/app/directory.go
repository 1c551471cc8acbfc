package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/platehub/internal/domain/athlete"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/logger"
)

// SearchAthletes finds athletes in the professional groups of every usable
// tenant and merges the ones whose normalized names match. Tenants are
// queried concurrently; merging happens afterwards in tenant order so the
// result does not depend on which tenant answered first.
//
// Only a primary authentication failure is returned as an error. A failing
// secondary tenant, group list or profile list just contributes nothing.
func (s *Service) SearchAthletes(ctx context.Context, term string) ([]model.Athlete, error) {
	runID := uuid.NewString()
	log := s.logger.Named("directory")
	tenants := s.tenants()

	found := make([][]athlete.Candidate, len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	for i, tenant := range tenants {
		g.Go(func() error {
			cands, err := s.collectCandidates(gctx, log, runID, tenant)
			if err != nil {
				return err
			}
			found[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error(ctx, "athlete search aborted", logger.String("run", runID), logger.Error(err))
		return nil, err
	}

	table := athlete.NewTable()
	for _, cands := range found {
		for _, c := range cands {
			table.Add(c)
		}
	}
	result := table.Search(term)
	s.metrics.RecordDirectorySearch(len(result), table.Len())
	log.Info(ctx, "athlete search finished",
		logger.String("run", runID),
		logger.String("term", term),
		logger.Int("athletes", table.Len()),
		logger.Int("matches", len(result)),
	)
	return result, nil
}

func (s *Service) collectCandidates(ctx context.Context, log logger.Logger, runID string, tenant model.Tenant) ([]athlete.Candidate, error) {
	fields := []logger.Field{logger.String("run", runID), logger.String("tenant", string(tenant))}

	auth := attempt(func() (model.AccessToken, error) { return s.broker.Token(ctx, tenant) })
	if auth.failed() {
		if auth.fatal() {
			return nil, auth.abort()
		}
		log.Warn(ctx, "tenant disabled for this search", append(fields, logger.Error(auth.err))...)
		return nil, nil
	}

	groups := attempt(func() ([]model.Group, error) { return s.vendor.Groups(ctx, tenant) })
	if groups.failed() {
		if groups.fatal() {
			return nil, groups.abort()
		}
		s.metrics.RecordFetchFailure(string(tenant), "groups")
		log.Warn(ctx, "group list failed, tenant skipped", append(fields, logger.Error(groups.err))...)
		return nil, nil
	}

	var cands []athlete.Candidate
	for _, grp := range s.professional(groups.value) {
		profiles := attempt(func() ([]model.Profile, error) { return s.vendor.Profiles(ctx, tenant, grp.ID) })
		if profiles.failed() {
			if profiles.fatal() {
				return nil, profiles.abort()
			}
			s.metrics.RecordFetchFailure(string(tenant), "profiles")
			log.Warn(ctx, "profile list failed, group skipped",
				append(fields, logger.String("groupId", grp.ID), logger.Error(profiles.err))...)
			continue
		}
		for _, p := range profiles.value {
			cands = append(cands, athlete.Candidate{Tenant: tenant, Profile: p, Groups: []model.Group{grp}})
		}
	}
	log.Debug(ctx, "tenant candidates collected", append(fields, logger.Int("candidates", len(cands)))...)
	return cands, nil
}

// professional keeps groups whose name contains any configured fragment,
// case-insensitively.
func (s *Service) professional(groups []model.Group) []model.Group {
	var out []model.Group
	for _, g := range groups {
		name := strings.ToLower(g.Name)
		for _, frag := range s.professionalGroups {
			if strings.Contains(name, strings.ToLower(frag)) {
				out = append(out, g)
				break
			}
		}
	}
	return out
}
