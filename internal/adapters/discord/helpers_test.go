package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

func TestParseIDs(t *testing.T) {
	got := parseIDs("<@123> <@!456> 789 no-id <@abc>")
	want := []string{"123", "456", "789"}
	if len(got) != len(want) {
		t.Fatalf("parseIDs = %v, quiero %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseIDs[%d] = %s, quiero %s", i, got[i], want[i])
		}
	}
	if ids := parseIDs(""); len(ids) != 0 {
		t.Errorf("parseIDs vacío = %v", ids)
	}
}

func TestParseBanDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"12h", 12 * time.Hour},
		{"30m", 30 * time.Minute},
		{"45", 45 * time.Minute},
		{" 2D ", 2 * 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := parseBanDuration(c.in)
		if err != nil || got != c.want {
			t.Errorf("parseBanDuration(%q) = (%v, %v), quiero %v", c.in, got, err, c.want)
		}
	}
	for _, bad := range []string{"", "abc", "-5d", "0h"} {
		if _, err := parseBanDuration(bad); err == nil {
			t.Errorf("parseBanDuration(%q) debería fallar", bad)
		}
	}
}

func TestFmtPlayers(t *testing.T) {
	players := []domain.Registration{
		{UserID: "1", IGN: "Ash", Pokemon: "Pikachu", PokemonLevel: "100", Shiny: true, HoldingItem: "Light Ball"},
		{UserID: "2", IGN: "Misty", Pokemon: "Gyarados", Mega: true, MegaDetails: "Mega Gyarados"},
	}
	out := fmtPlayers(players)

	for _, want := range []string{"**Player 1:**", "**Player 2:**", "<@1>", "`Ash`", "Level: `100`", "Shiny: `Yes` ✨", "Item: `Light Ball`", "Mega Evolution: `Mega Gyarados`"} {
		if !strings.Contains(out, want) {
			t.Errorf("fmtPlayers no contiene %q:\n%s", want, out)
		}
	}
	// Campos opcionales ausentes no aparecen.
	if strings.Contains(out, "Item: ``") || strings.Count(out, "Shiny") != 1 {
		t.Errorf("campos opcionales mal renderizados:\n%s", out)
	}
}

func TestFmtPositions(t *testing.T) {
	entries := []domain.Registration{
		{UserID: "1", IGN: "Ash", Priority: 2},
		{UserID: "2", IGN: "Misty"},
	}
	out := fmtPositions(entries, 1)
	if !strings.Contains(out, "1) <@1> — `Ash` ⭐2") {
		t.Errorf("falta la entrada con prioridad:\n%s", out)
	}
	if !strings.Contains(out, "2) <@2> — `Misty`") {
		t.Errorf("falta la segunda entrada:\n%s", out)
	}
}
