package policy

import "testing"

func TestCanHandleTable(t *testing.T) {
	cases := []struct {
		rank Rank
		tier string
		want bool
	}{
		{RankTrainee, TierSimple, true},
		{RankTrainee, TierMedium, false},
		{RankTrainee, TierComplex, false},
		{RankTrainee, TierVeryComplex, false},
		{RankJunior, TierSimple, true},
		{RankJunior, TierMedium, true},
		{RankJunior, TierComplex, false},
		{RankMechanic, TierComplex, true},
		{RankMechanic, TierVeryComplex, false},
		{RankSenior, TierVeryComplex, true},
		{RankHead, TierVeryComplex, true},
		{RankOwner, TierVeryComplex, true},
	}
	for _, c := range cases {
		if got := CanHandle([]Rank{c.rank}, c.tier); got != c.want {
			t.Errorf("CanHandle(%s, %s) = %v, want %v", c.rank, c.tier, got, c.want)
		}
	}
}

func TestCanHandleMonotonic(t *testing.T) {
	tiers := []string{TierSimple, TierMedium, TierComplex, TierVeryComplex}
	for _, r := range Ranks() {
		if !CanHandle([]Rank{r}, TierVeryComplex) {
			continue
		}
		for _, tier := range tiers {
			if !CanHandle([]Rank{r}, tier) {
				t.Errorf("rank %s handles very_complex but not %s", r, tier)
			}
		}
	}
}

func TestCanHandleUsesHighestRank(t *testing.T) {
	ranks := []Rank{RankTrainee, RankSenior}
	if !CanHandle(ranks, TierVeryComplex) {
		t.Fatalf("highest rank in set should decide")
	}
	if CanHandle(nil, TierSimple) {
		t.Fatalf("empty rank set is not staff")
	}
}

func TestCanHandleUnknownTierDefaultsToMedium(t *testing.T) {
	if CanHandle([]Rank{RankTrainee}, "weird") {
		t.Fatalf("trainee must not qualify for default tier")
	}
	if !CanHandle([]Rank{RankJunior}, "weird") {
		t.Fatalf("junior qualifies for default tier")
	}
}

func TestManagementHierarchy(t *testing.T) {
	if !CanAppoint(RankOwner, RankHead) {
		t.Fatalf("owner appoints head mechanic")
	}
	if CanAppoint(RankHead, RankHead) {
		t.Fatalf("head mechanic cannot appoint a head mechanic")
	}
	if !CanAppoint(RankHead, RankSenior) {
		t.Fatalf("head mechanic appoints below head")
	}
	if CanAppoint(RankSenior, RankTrainee) {
		t.Fatalf("senior mechanic has no management authority")
	}
	if CanRemove(RankHead, RankHead) {
		t.Fatalf("only owner removes a head mechanic")
	}
	if !CanRemove(RankOwner, RankOwner) {
		t.Fatalf("owner is unconstrained")
	}
}

func TestCanAnnounce(t *testing.T) {
	if CanAnnounce([]Rank{RankJunior}) {
		t.Fatalf("junior mechanics do not announce")
	}
	for _, r := range []Rank{RankMechanic, RankSenior, RankHead, RankOwner} {
		if !CanAnnounce([]Rank{r}) {
			t.Errorf("%s should announce", r)
		}
	}
	if CanAnnounce(nil) {
		t.Fatalf("empty rank set is not staff")
	}
}

func TestParseRankRoundTrip(t *testing.T) {
	for _, r := range Ranks() {
		if ParseRank(r.String()) != r {
			t.Errorf("ParseRank(%q) did not round-trip", r.String())
		}
	}
	if ParseRank("client") != RankNone {
		t.Fatalf("unknown names map to RankNone")
	}
}
