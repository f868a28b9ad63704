package seed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/lomba/internal/domain/model"
)

// sheetNamespace derives stable submission ids, so a second run against
// the same service is answered with duplicates.
var sheetNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lomba/seed/sheets"))

// catalogue is the demo event. Sandi stays unpublished.
var catalogue = []model.Competition{
	{ID: "tapak-kemah", Name: "Tapak Kemah", IsPublished: true, Criteria: []model.Criterion{
		{ID: "tenda", Name: "Kerapian Tenda"},
		{ID: "kebersihan", Name: "Kebersihan"},
		{ID: "kerjasama", Name: "Kerja Sama"},
	}},
	{ID: "pionering", Name: "Pionering", IsPublished: true, Criteria: []model.Criterion{
		{ID: "konstruksi", Name: "Konstruksi"},
		{ID: "kekuatan", Name: "Kekuatan Ikatan"},
		{ID: "estetika", Name: "Estetika"},
	}},
	{ID: "lkbb", Name: "LKBB", IsPublished: true, Criteria: []model.Criterion{
		{ID: "formasi", Name: "Formasi"},
		{ID: "variasi", Name: "Variasi"},
		{ID: "kekompakan", Name: "Kekompakan"},
	}},
	{ID: "semaphore", Name: "Semaphore", IsPublished: true},
	{ID: "pidato", Name: "Pidato", IsIndividual: true, IsPublished: true},
	{ID: "sandi", Name: "Sandi", IsPublished: false},
}

var squadNames = []string{"Elang", "Rajawali", "Merpati", "Garuda", "Kenari", "Cendrawasih", "Kutilang", "Nuri"}

// Generate builds the demo event for cfg. The same Seed, TeamsPerCategory
// and Judges always produce the same plan.
func Generate(cfg Config) Plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	plan := Plan{Competitions: make([]model.Competition, len(catalogue))}
	for i, c := range catalogue {
		c.Criteria = append([]model.Criterion(nil), c.Criteria...)
		plan.Competitions[i] = c
	}

	for _, category := range model.Categories() {
		prefix := "pa"
		if category == model.CategoryPutri {
			prefix = "pi"
		}
		for i := 1; i <= cfg.TeamsPerCategory; i++ {
			plan.Teams = append(plan.Teams, model.Team{
				ID:       fmt.Sprintf("%s-%02d", prefix, i),
				School:   fmt.Sprintf("SMP Negeri %d", i),
				TeamName: fmt.Sprintf("Regu %s %s", squadNames[(i-1)%len(squadNames)], category),
				Type:     category,
			})
		}
	}

	for _, team := range plan.Teams {
		for _, comp := range plan.Competitions {
			members := []string{""}
			if comp.IsIndividual {
				members = members[:0]
				for m := 1; m <= membersPerTeam; m++ {
					members = append(members, fmt.Sprintf("Anggota %d %s", m, team.ID))
				}
			}
			for j := 1; j <= cfg.Judges; j++ {
				for _, member := range members {
					plan.Sheets = append(plan.Sheets, newSheet(rng, cfg.Seed, team, comp, fmt.Sprintf("juri-%d", j), member))
				}
			}
		}
	}
	return plan
}

func newSheet(rng *rand.Rand, seed uint64, team model.Team, comp model.Competition, judge, member string) Sheet {
	name := fmt.Sprintf("%d/%s/%s/%s/%s", seed, team.ID, comp.ID, judge, member)
	s := Sheet{
		SubmissionID:  uuid.NewSHA1(sheetNamespace, []byte(name)).String(),
		TeamID:        team.ID,
		CompetitionID: comp.ID,
		JudgeID:       judge,
		MemberName:    member,
	}
	if len(comp.Criteria) == 0 {
		total := mark(rng)
		s.TotalScore = &total
		return s
	}
	s.Marks = make(map[string]float64, len(comp.Criteria))
	for _, cr := range comp.Criteria {
		s.Marks[cr.ID] = mark(rng)
	}
	return s
}

// mark returns a half-point mark in [60, 100].
func mark(rng *rand.Rand) float64 {
	return math.Round((minMark+rng.Float64()*markRange)*2) / 2
}
