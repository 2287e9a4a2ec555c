package main

import "testing"

func TestAcceptMobName(t *testing.T) {
	cases := []struct {
		name     string
		mob      string
		filterOn bool
		allow    []string
		deny     []string
		want     bool
	}{
		{"empty name rejected", "", false, nil, nil, false},
		{"filter off accepts any", "anything", false, []string{"goblin"}, nil, true},
		{"allow match", "goblin", true, []string{"Goblin", "Orc"}, nil, true},
		{"allow case-insensitive", "GOBLIN", true, []string{"goblin"}, nil, true},
		{"allow substring tolerates artifacts", "x goblin warrior", true, []string{"goblin"}, nil, true},
		{"not in allow", "wolf", true, []string{"goblin", "orc"}, nil, false},
		{"deny wins over allow", "goblin king", true, []string{"goblin"}, []string{"king"}, false},
		{"empty allow accepts undenied", "wolf", true, nil, []string{"bear"}, true},
		{"deny only", "bear cub", true, nil, []string{"bear"}, false},
	}

	for _, tc := range cases {
		cfg := &BotConfig{
			MobFilterOn: tc.filterOn,
			MobAllow:    tc.allow,
			MobDeny:     tc.deny,
		}
		if got := AcceptMobName(tc.mob, cfg); got != tc.want {
			t.Errorf("%s: AcceptMobName(%q) = %v, want %v", tc.name, tc.mob, got, tc.want)
		}
	}
}
