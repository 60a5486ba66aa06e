package crew

import (
	"reflect"
	"testing"

	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

func TestParseAssignsRolesPositionally(t *testing.T) {
	blocks := []string{
		"PIC\nCHAN TAI MAN\nHKG\nWONG KA MING",
		"LEE SIU L..., CHEUNG MEI",
	}

	res := Parse(blocks, CockpitRoles)

	want := []models.CrewMember{
		{Role: models.RolePIC, Name: "Chan Tai Man"},
		{Role: models.RoleRelief, Name: "Wong Ka Ming"},
		{Role: models.RoleSIC, Name: "Lee Siu L"},
		{Role: models.RoleRelief2, Name: "Cheung Mei"},
	}
	if !reflect.DeepEqual(res.Members, want) {
		t.Errorf("Expected %+v, got %+v", want, res.Members)
	}

	if len(res.Review) != 1 {
		t.Fatalf("Expected one review item, got %d", len(res.Review))
	}
	item := res.Review[0]
	if item.Role != models.RoleSIC || item.OriginalText != "LEE SIU L..." || item.CorrectedText != "Lee Siu L" {
		t.Errorf("Unexpected review item %+v", item)
	}
}

func TestParseDropsNamesPastLastRole(t *testing.T) {
	res := Parse([]string{"AA BB, CC DD, EE FF, GG HH, II JJ, KK LL"}, CockpitRoles)
	if len(res.Members) != len(CockpitRoles) {
		t.Errorf("Expected %d members, got %d", len(CockpitRoles), len(res.Members))
	}
	if res.Dropped != 2 {
		t.Errorf("Expected 2 dropped names, got %d", res.Dropped)
	}
}

func TestParseEmpty(t *testing.T) {
	res := Parse([]string{"", "  ", "LHR, FA"}, CabinRoles)
	if len(res.Members) != 0 || len(res.Review) != 0 {
		t.Errorf("Expected nothing parsed, got %+v", res)
	}
}

func TestSortIsTotalAndStable(t *testing.T) {
	members := []models.CrewMember{
		{Role: "Purser", Name: "Unknown One"},
		{Role: models.RoleFA, Name: "Fa"},
		{Role: models.RoleSIC, Name: "Sic"},
		{Role: "Trainee", Name: "Unknown Two"},
		{Role: models.RolePIC, Name: "Pic"},
		{Role: models.RoleISM, Name: "Ism"},
		{Role: "Observer", Name: "Unknown Three"},
	}

	Sort(members)

	wantNames := []string{"Pic", "Sic", "Ism", "Fa", "Unknown One", "Unknown Two", "Unknown Three"}
	for i, m := range members {
		if m.Name != wantNames[i] {
			t.Fatalf("Position %d: expected %s, got %s (%+v)", i, wantNames[i], m.Name, members)
		}
	}

	again := append([]models.CrewMember(nil), members...)
	Sort(again)
	if !reflect.DeepEqual(again, members) {
		t.Errorf("Re-sorting a sorted list changed it: %+v", again)
	}
}

func TestRank(t *testing.T) {
	order := append(append([]models.Role{}, CockpitRoles...), CabinRoles...)
	for i := 1; i < len(order); i++ {
		if Rank(order[i-1]) >= Rank(order[i]) {
			t.Errorf("Expected %s to outrank %s", order[i-1], order[i])
		}
	}
	if Rank("Nobody") <= Rank(models.RoleFA4) {
		t.Error("Expected unknown role to rank last")
	}
	if KnownRole("Nobody") || !KnownRole(models.RoleSP) {
		t.Error("KnownRole mismatch")
	}
}

func TestReassign(t *testing.T) {
	members := []models.CrewMember{
		{Role: models.RoleISM, Name: "Ann Lee"},
		{Role: models.RoleSP, Name: "Bo Chan"},
	}

	if err := Reassign(members, "bo chan", models.RolePIC); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if members[0].Name != "Bo Chan" || members[0].Role != models.RolePIC {
		t.Errorf("Expected reassigned member first, got %+v", members)
	}

	if err := Reassign(members, "Nobody", models.RoleFA); err == nil {
		t.Error("Expected error for unknown member")
	}
}

func TestReviewQueueDedupByRole(t *testing.T) {
	var q ReviewQueue

	if !q.Add(models.CrewReviewItem{Role: models.RolePIC, OriginalText: "A..", CorrectedText: "A"}) {
		t.Fatal("Expected first item to be added")
	}
	if q.Add(models.CrewReviewItem{Role: models.RolePIC, OriginalText: "B..", CorrectedText: "B"}) {
		t.Error("Expected duplicate role to be rejected")
	}
	q.Add(models.CrewReviewItem{Role: models.RoleFA, OriginalText: "C..", CorrectedText: "C"})

	items := q.Items()
	if len(items) != 2 || items[0].OriginalText != "A.." || items[1].Role != models.RoleFA {
		t.Errorf("Unexpected items %+v", items)
	}

	items[0].CorrectedText = "mutated"
	if q.Items()[0].CorrectedText != "A" {
		t.Error("Items must return a copy")
	}

	q.Reset()
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after reset, got %d", q.Len())
	}
}
