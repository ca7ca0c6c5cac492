package reshape

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"trialviz/internal/simulate"
	"trialviz/pkg/domain"
	"trialviz/testutil"
)

func sampleWide() domain.WideTable {
	return domain.WideTable{Subjects: []domain.Subject{
		{ID: 7, Group: domain.GroupA, Baseline: 10, Post: 15},
		{ID: 3, Group: domain.GroupB, Baseline: 20, Post: 10},
	}}
}

func TestToLongLayout(t *testing.T) {
	long, err := ToLongDefault(sampleWide())
	if err != nil {
		t.Fatalf("ToLong: %v", err)
	}
	want := []domain.Observation{
		{ID: 7, Group: domain.GroupA, Time: domain.TimeBaseline, Value: 10},
		{ID: 7, Group: domain.GroupA, Time: domain.TimePost, Value: 15},
		{ID: 3, Group: domain.GroupB, Time: domain.TimeBaseline, Value: 20},
		{ID: 3, Group: domain.GroupB, Time: domain.TimePost, Value: 10},
	}
	if diff := cmp.Diff(want, long.Observations); diff != "" {
		t.Fatalf("unexpected long rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"baseline", "post"}, long.ValueColumns); diff != "" {
		t.Fatalf("value columns (-want +got):\n%s", diff)
	}
}

func TestRoundTripGeneratedDataset(t *testing.T) {
	for _, seed := range []int64{1, 1234, 99} {
		cfg := simulate.DefaultConfig()
		cfg.Seed = seed
		wide, err := simulate.Generate(cfg)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		long, err := ToLongDefault(wide)
		if err != nil {
			t.Fatalf("ToLong: %v", err)
		}
		if long.Len() != 2*wide.Len() {
			t.Fatalf("expected %d observations, got %d", 2*wide.Len(), long.Len())
		}
		perID := make(map[int]int)
		for _, o := range long.Observations {
			perID[o.ID]++
		}
		for id, n := range perID {
			if n != 2 {
				t.Fatalf("subject %d has %d observations", id, n)
			}
		}
		back, err := ToWide(long)
		if err != nil {
			t.Fatalf("ToWide: %v", err)
		}
		if back.Len() != wide.Len() {
			t.Fatalf("expected %d subjects, got %d", wide.Len(), back.Len())
		}
		for i := range wide.Subjects {
			a, b := wide.Subjects[i], back.Subjects[i]
			if a.ID != b.ID || a.Group != b.Group ||
				math.Float64bits(a.Baseline) != math.Float64bits(b.Baseline) ||
				math.Float64bits(a.Post) != math.Float64bits(b.Post) {
				t.Fatalf("seed %d row %d: %+v != %+v", seed, i, a, b)
			}
		}
	}
}

func TestRoundTripReversedLabels(t *testing.T) {
	long, err := ToLong(sampleWide(), []string{"post", "baseline"}, []domain.TimePoint{domain.TimePost, domain.TimeBaseline})
	if err != nil {
		t.Fatalf("ToLong: %v", err)
	}
	back, err := ToWide(long)
	if err != nil {
		t.Fatalf("ToWide: %v", err)
	}
	if diff := cmp.Diff(sampleWide().Subjects, back.Subjects); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToLongRejectsBadArguments(t *testing.T) {
	cases := []struct {
		name    string
		columns []string
		labels  []domain.TimePoint
	}{
		{"empty", nil, nil},
		{"length mismatch", []string{"baseline"}, domain.TimePoints},
		{"unknown column", []string{"baseline", "weight"}, domain.TimePoints},
		{"duplicate label", []string{"baseline", "post"}, []domain.TimePoint{0, 0}},
		{"duplicate column", []string{"post", "post"}, domain.TimePoints},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ToLong(sampleWide(), tc.columns, tc.labels); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestToWideDetectsMissingAndDuplicate(t *testing.T) {
	long, err := ToLongDefault(sampleWide())
	if err != nil {
		t.Fatalf("ToLong: %v", err)
	}

	missing := long
	missing.Observations = append([]domain.Observation(nil), long.Observations[:3]...)
	_, err = ToWide(missing)
	var pivotErr *PivotError
	if !errors.Is(err, ErrMissingTime) || !errors.As(err, &pivotErr) {
		t.Fatalf("expected missing-time pivot error, got %v", err)
	}
	if pivotErr.ID != 3 || pivotErr.Time != domain.TimePost {
		t.Fatalf("unexpected pivot error detail %+v", pivotErr)
	}

	dup := long
	dup.Observations = append(append([]domain.Observation(nil), long.Observations...), long.Observations[0])
	if _, err := ToWide(dup); !errors.Is(err, ErrDuplicateTime) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	mixed := long
	mixed.Observations = append([]domain.Observation(nil), long.Observations...)
	mixed.Observations[1].Group = domain.GroupB
	if _, err := ToWide(mixed); err == nil {
		t.Fatalf("expected group mismatch error")
	}

	unmapped := long
	unmapped.Observations = append([]domain.Observation(nil), long.Observations...)
	unmapped.Observations[0].Time = 5
	if _, err := ToWide(unmapped); err == nil {
		t.Fatalf("expected unmapped time error")
	}
}

func TestReshapeStaysFreeOfRenderingAndInfra(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PresentationOrInfraImportForbidden, "reshape must stay a pure computation")
}
