package domain

import (
	"bytes"
	"fmt"
	"time"
)

// Millis: epoch en milisegundos, como lo escriben los registros viejos del bot.
type Millis int64

func MillisFromTime(t time.Time) Millis { return Millis(t.UnixMilli()) }

func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)) }

// YesNo serializa como "Yes"/"No" para mantener compatibilidad con los
// documentos ya guardados. Acepta también booleanos al leer.
type YesNo bool

func (y YesNo) MarshalJSON() ([]byte, error) {
	if y {
		return []byte(`"Yes"`), nil
	}
	return []byte(`"No"`), nil
}

func (y *YesNo) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, []byte(`"Yes"`)), bytes.Equal(b, []byte(`"yes"`)), bytes.Equal(b, []byte(`true`)):
		*y = true
	case bytes.Equal(b, []byte(`"No"`)), bytes.Equal(b, []byte(`"no"`)), bytes.Equal(b, []byte(`false`)), bytes.Equal(b, []byte(`""`)), bytes.Equal(b, []byte(`null`)):
		*y = false
	default:
		return fmt.Errorf("yesno: valor inválido %s", b)
	}
	return nil
}

// Registration es inmutable una vez insertada; moverla de lista no la altera.
type Registration struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"userId"`
	IGN          string `json:"ign"`
	Pokemon      string `json:"pokemon"`
	PokemonLevel string `json:"pokemonLevel,omitempty"`
	Mega         YesNo  `json:"mega"`
	MegaDetails  string `json:"megaDetails,omitempty"`
	Shiny        YesNo  `json:"shiny"`
	HoldingItem  string `json:"holdingItem,omitempty"`
	Priority     int    `json:"priority"`
	RegisteredAt Millis `json:"registeredAt"`
}
