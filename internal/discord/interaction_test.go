package discord

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l2-tipbot/internal/command"
)

func TestInteraction_CommandKeepsNumberText(t *testing.T) {
	payload := `{
		"id": "1", "type": 2, "token": "tok",
		"member": {"user": {"id": "1234"}},
		"data": {"name": "send", "options": [
			{"name": "amount", "type": 10, "value": 0.10000000000000000001},
			{"name": "ticker", "type": 3, "value": "eth"},
			{"name": "user", "type": 6, "value": "2345"},
			{"name": "confirm", "type": 5, "value": true}
		]}
	}`
	var in Interaction
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	raw := in.Command()
	assert.Equal(t, "send", raw.Name)
	assert.Equal(t, "1234", raw.ActorID)
	assert.Equal(t, []command.Option{
		{Name: "amount", Value: "0.10000000000000000001"},
		{Name: "ticker", Value: "eth"},
		{Name: "user", Value: "2345"},
		{Name: "confirm", Value: "true"},
	}, raw.Options)
}

func TestInteraction_FalseOptionIsAbsent(t *testing.T) {
	payload := `{"type": 2, "user": {"id": "99"},
		"data": {"name": "unlock", "options": [{"name": "confirm", "type": 5, "value": false}]}}`
	var in Interaction
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	raw := in.Command()
	assert.Equal(t, "99", raw.ActorID)
	_, ok := command.GetOption(raw, command.OptConfirm)
	assert.False(t, ok)
}

func TestInteraction_NoData(t *testing.T) {
	in := Interaction{Type: InteractionApplicationCommand}
	raw := in.Command()
	assert.Empty(t, raw.Name)
	assert.Empty(t, raw.ActorID)
	assert.Empty(t, raw.Options)
}
