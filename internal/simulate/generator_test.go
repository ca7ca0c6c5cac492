package simulate

import (
	"math"
	"strings"
	"testing"

	"trialviz/pkg/domain"
	"trialviz/testutil"
)

func TestGenerateGoldenRows(t *testing.T) {
	table, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	golden := []domain.Subject{
		{ID: 1, Group: domain.GroupA, Baseline: 53, Post: 53.09690016301611},
		{ID: 2, Group: domain.GroupA, Baseline: 65, Post: 56.11365704760618},
		{ID: 3, Group: domain.GroupA, Baseline: 15, Post: 17.926134743612273},
		{ID: 4, Group: domain.GroupA, Baseline: 57, Post: 63.57817119621603},
		{ID: 5, Group: domain.GroupA, Baseline: 36, Post: 35.558140504894695},
	}
	for i, want := range golden {
		got := table.Subjects[i]
		if got.ID != want.ID || got.Group != want.Group || got.Baseline != want.Baseline {
			t.Fatalf("row %d: got %+v want %+v", i, got, want)
		}
		if math.Abs(got.Post-want.Post) > 1e-9 {
			t.Fatalf("row %d post: got %.15f want %.15f", i, got.Post, want.Post)
		}
	}
}

func TestGenerateShapeAcrossSeeds(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, 1234, 987654321, -7} {
		cfg := DefaultConfig()
		cfg.Seed = seed
		table, err := Generate(cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if table.Len() != 70 {
			t.Fatalf("seed %d: expected 70 subjects, got %d", seed, table.Len())
		}
		counts := table.CountByGroup()
		if counts[domain.GroupA] != 35 || counts[domain.GroupB] != 35 {
			t.Fatalf("seed %d: unexpected group split %v", seed, counts)
		}
		seen := make(map[int]struct{}, table.Len())
		for _, s := range table.Subjects {
			if s.Baseline < 0 {
				t.Fatalf("seed %d: negative baseline %+v", seed, s)
			}
			if s.Baseline != math.Round(s.Baseline) {
				t.Fatalf("seed %d: baseline not integral %+v", seed, s)
			}
			if _, dup := seen[s.ID]; dup {
				t.Fatalf("seed %d: duplicate id %d", seed, s.ID)
			}
			seen[s.ID] = struct{}{}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := range first.Subjects {
		a, b := first.Subjects[i], second.Subjects[i]
		if a != b || math.Float64bits(a.Post) != math.Float64bits(b.Post) {
			t.Fatalf("row %d differs across runs: %+v vs %+v", i, a, b)
		}
	}

	other := DefaultConfig()
	other.Seed = 4321
	third, err := Generate(other)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	same := true
	for i := range first.Subjects {
		if first.Subjects[i] != third.Subjects[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical tables")
	}
}

func TestGenerateClipsAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaselineMean = -100
	cfg.BaselineSD = 1
	table, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range table.Subjects {
		if s.Baseline != 0 || s.Post != 0 {
			t.Fatalf("expected clipped zero baseline and post, got %+v", s)
		}
	}
}

func TestGenerateOddSubjectsFavoursA(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subjects = 7
	table, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	counts := table.CountByGroup()
	if counts[domain.GroupA] != 4 || counts[domain.GroupB] != 3 {
		t.Fatalf("unexpected split %v", counts)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"too few subjects", func(c *Config) { c.Subjects = 1 }, "subjects must be"},
		{"negative baseline sd", func(c *Config) { c.BaselineSD = -1 }, "baseline sd"},
		{"missing group", func(c *Config) { delete(c.Multipliers, domain.GroupB) }, "missing multiplier for group B"},
		{"unknown group", func(c *Config) { c.Multipliers["C"] = Normal{Mean: 1} }, "unknown group"},
		{"negative multiplier sd", func(c *Config) { c.Multipliers[domain.GroupA] = Normal{Mean: 1, SD: -0.1} }, "multiplier sd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := Generate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSimulateStaysFreeOfRenderingAndInfra(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PresentationOrInfraImportForbidden, "generation must stay a pure computation")
}
