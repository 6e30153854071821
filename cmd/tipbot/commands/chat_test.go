package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l2-tipbot/internal/bot"
	"l2-tipbot/internal/command"
)

func TestPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	printMessage(&buf, bot.Message{
		Title:       "DAI Balance",
		Description: "0.0 DAI - $0.00",
		Fields:      []bot.Field{{Name: "Note", Value: "hi"}},
	})
	assert.Equal(t, "DAI Balance\n===========\n0.0 DAI - $0.00\n\nNote\n  hi\n", buf.String())

	buf.Reset()
	printMessage(&buf, bot.Message{Content: bot.ServerErrorText})
	assert.Equal(t, "Server Error.\n", buf.String())
}

func TestConfirmArg(t *testing.T) {
	opts, err := confirmArg([]string{"DAI"}, 1)
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = confirmArg([]string{"DAI", "CONFIRM"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []command.Option{{Name: "confirm", Value: "confirm"}}, opts)

	_, err = confirmArg([]string{"DAI", "yes"}, 1)
	assert.Error(t, err)
}
