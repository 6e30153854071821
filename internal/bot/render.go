package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/balance"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/intent"
)

// Field is a titled block inside a Message.
type Field struct {
	Name  string
	Value string
}

// Message is a rendered Response. Content is set instead of the embed
// parts for plain-text replies.
type Message struct {
	Title       string
	Description string
	Fields      []Field
	Color       int
	Content     string
}

// IsEmbed reports whether the message carries an embed.
func (m Message) IsEmbed() bool { return m.Content == "" }

// Render turns a Response into chat text.
func Render(r Response) Message {
	switch r.Kind {
	case KindHelp:
		return renderHelp()
	case KindBalance:
		return renderBalance(r)
	case KindTokenList:
		return renderTokens(r.Tokens)
	case KindPreview:
		return renderPreview(r)
	case KindOutcome:
		return renderOutcome(r)
	case KindInfo:
		return renderInfo(r.Info)
	case KindFailure:
		return renderFailure(r)
	}
	return Message{Content: ServerErrorText}
}

func embed(title string, lines ...string) Message {
	return Message{Title: title, Description: strings.Join(lines, "\n\n"), Color: Color}
}

func renderHelp() Message {
	m := Message{Title: helpTitle, Color: Color}
	for _, f := range helpFields {
		m.Fields = append(m.Fields, Field{Name: f.name, Value: f.value})
	}
	return m
}

func renderBalance(r Response) Message {
	if r.Ticker != "" {
		m := Message{Title: fmt.Sprintf(balanceSingleTitle, r.Ticker), Color: Color}
		if len(r.Balances) > 0 {
			m.Description = balanceLine(r.Balances[0])
		}
		return m
	}

	m := Message{Title: balanceAllTitle, Color: Color}
	if balance.AllZero(r.Balances) {
		m.Description = noTokensText
		return m
	}
	lines := make([]string, 0, len(r.Balances))
	for _, e := range r.Balances {
		lines = append(lines, balanceLine(e))
	}
	m.Description = strings.Join(lines, "\n")
	return m
}

func balanceLine(e balance.Entry) string {
	return withPrice(e.Amount.String(), e.USD)
}

// withPrice appends " - $x.xx" when a price is known.
func withPrice(text string, usd *decimal.Decimal) string {
	if usd == nil {
		return text
	}
	return text + " - " + FormatUSD(*usd)
}

// FormatUSD renders a dollar value with two decimals.
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func renderTokens(tokens []domain.Token) Message {
	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lines = append(lines, t.Ticker+" | "+t.Name)
	}
	return Message{Title: tokenListTitle, Description: strings.Join(lines, "\n"), Color: Color}
}

func renderPreview(r Response) Message {
	p := r.Preview
	confirm := fmt.Sprintf(confirmText, p.Instruction)
	if p.Primary == nil {
		return embed(p.Title,
			fmt.Sprintf(unlockQuestion, p.Fee.Ticker()),
			withPrice(p.Fee.String(), r.FeeUSD),
			confirm,
		)
	}
	return embed(p.Title,
		amountLine("Amount", *p.Primary, r.PrimaryUSD),
		amountLine("Fee", p.Fee, r.FeeUSD),
		confirm,
	)
}

func renderOutcome(r Response) Message {
	o := r.Outcome
	var lines []string
	if o.Primary == nil {
		lines = append(lines, unlockedText)
	} else {
		lines = append(lines,
			amountLine("Sent", *o.Primary, r.PrimaryUSD),
			amountLine("Fee", o.Fee, r.FeeUSD),
		)
		if o.Committed && o.TxHash != "" {
			lines = append(lines, fmt.Sprintf(transactionText, o.TxHash))
		}
	}
	if !o.Committed {
		lines = append(lines, fmt.Sprintf(pendingText, o.TxHash))
	}
	return embed(o.Title, lines...)
}

func amountLine(label string, p amount.Packed, usd *decimal.Decimal) string {
	return label + ": " + withPrice(p.String(), usd)
}

func renderInfo(info *intent.Info) Message {
	if info != nil && info.Kind == intent.InfoAlreadyUnlocked {
		return embed(alreadyUnlockedInfo, unlockGeneralInfo, alreadyUnlocked)
	}
	return embed(unlockInfoTitle, unlockGeneralInfo, unlockInstructions)
}

func renderFailure(r Response) Message {
	switch r.Failure {
	case FailServerError:
		return Message{Content: ServerErrorText}
	case FailUsage:
		name := r.UsageCommand
		if name == "" {
			name = string(domain.CommandSend)
		}
		return embed(usageTitle, fmt.Sprintf(usageText, name))
	case FailMissingOptions:
		t := failureTexts[FailMissingOptions]
		return embed(t.title, fmt.Sprintf(t.description, strings.Join(r.MissingOptions, ", ")))
	}
	t, ok := failureTexts[r.Failure]
	if !ok {
		return Message{Content: ServerErrorText}
	}
	return embed(t.title, t.description)
}
