package storage

import (
	"fmt"
	"math/rand/v2"

	"github.com/kalambet/talentflow/internal/record"
)

var (
	seedRoles   = []string{"Frontend Engineer", "Backend Engineer", "Product Manager", "UI/UX Designer", "Data Analyst", "DevOps Engineer", "QA Engineer", "Mobile Developer"}
	seedLevels  = []string{"Junior", "Senior", "Staff", "Lead"}
	seedTags    = []string{"remote", "onsite", "hybrid", "full-time", "contract", "urgent"}
	seedFirst   = []string{"Ann", "Bob", "Carol", "Dan", "Eve", "Frank", "Grace", "Heidi", "Ivan", "Judy", "Mallory", "Niaj", "Olivia", "Peggy", "Rupert", "Sybil", "Trent", "Victor", "Walter", "Zoë"}
	seedLast    = []string{"Lee", "Stone", "Anders", "Park", "Novak", "Silva", "Kim", "Moreau", "Okafor", "Rossi", "Tanaka", "Weber"}
	seedDomains = []string{"example.com", "mail.test", "talent.dev"}
)

// Seed fills an empty database with deterministic demo jobs and candidates.
// It does nothing when jobs already exist.
func (s *Store) Seed(jobs, candidates int) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return fmt.Errorf("counting jobs: %w", err)
	}
	if n > 0 || jobs <= 0 {
		return nil
	}

	rng := rand.New(rand.NewPCG(42, 1024))
	ids := make([]string, 0, jobs)
	for i := range jobs {
		title := fmt.Sprintf("%s %s", seedLevels[rng.IntN(len(seedLevels))], seedRoles[i%len(seedRoles)])
		tags := []string{seedTags[rng.IntN(len(seedTags))]}
		if rng.IntN(2) == 0 {
			tags = append(tags, seedTags[rng.IntN(len(seedTags))])
		}
		j, err := s.CreateJob(record.NewJob{
			Title: title,
			Slug:  fmt.Sprintf("%s-%d", record.Slugify(title), i+1),
			Tags:  tags,
		})
		if err != nil {
			return fmt.Errorf("seeding job %d: %w", i, err)
		}
		if rng.IntN(4) == 0 {
			archived := record.JobArchived
			if _, err := s.UpdateJob(j.ID, record.JobPatch{Status: &archived}); err != nil {
				return fmt.Errorf("archiving seeded job %d: %w", i, err)
			}
		}
		ids = append(ids, j.ID)
	}

	for i := range candidates {
		first := seedFirst[rng.IntN(len(seedFirst))]
		last := seedLast[rng.IntN(len(seedLast))]
		_, err := s.CreateCandidate(record.NewCandidate{
			Name:  first + " " + last,
			Email: fmt.Sprintf("%s.%s%d@%s", record.Slugify(first), record.Slugify(last), i, seedDomains[rng.IntN(len(seedDomains))]),
			Stage: record.Stages[rng.IntN(len(record.Stages))],
			JobID: ids[rng.IntN(len(ids))],
		})
		if err != nil {
			return fmt.Errorf("seeding candidate %d: %w", i, err)
		}
	}
	return nil
}
