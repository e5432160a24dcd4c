package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"quantDashboard/internal/analytics"
)

const systemPrompt = `You are a concise performance analyst. You receive backtest metrics for a crypto asset or portfolio and explain them in plain language for a Telegram chat.

Your response must follow this structure:

**Summary:** one or two sentences on how the period went.
**Risk:** what the volatility and drawdown say about the ride.
**Risk-adjusted:** interpret the Sharpe ratio; if it is n/a, say the series was flat and the ratio is undefined.
**Caveats:** past performance, sample length, no transaction costs.

Guidelines:
- Do not recommend trades or give financial advice
- Quote the numbers you were given, do not invent others
- At most 150 words`

// Commentator turns a metrics record into a short narrative.
type Commentator struct {
	cli   oa.Client
	model string
}

// NewCommentator returns nil when apiKey is empty so callers can treat
// commentary as optional.
func NewCommentator(apiKey string) *Commentator {
	if apiKey == "" {
		return nil
	}
	return &Commentator{cli: oa.NewClient(option.WithAPIKey(apiKey)), model: "gpt-4"}
}

func (c *Commentator) Comment(ctx context.Context, title string, rec analytics.Record, warnings []string) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(Prompt(title, rec, warnings)),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return sanitize(resp.Choices[0].Message.Content), nil
}

// Prompt renders the record as the user message.
func Prompt(title string, rec analytics.Record, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Metrics for %s over %d periods:\n", title, rec.Observations)
	fmt.Fprintf(&b, "- Total return: %.2f%%\n", rec.TotalReturn)
	fmt.Fprintf(&b, "- Annualized volatility: %s\n", rec.AnnualizedVolatility.Percent())
	fmt.Fprintf(&b, "- Max drawdown: %.2f%%\n", rec.MaxDrawdown)
	fmt.Fprintf(&b, "- Sharpe ratio: %s\n", rec.SharpeRatio)
	if c := rec.Correlation; c != nil && len(c.Symbols) > 1 {
		b.WriteString("- Pairwise correlations:\n")
		for i := range c.Symbols {
			for j := i + 1; j < len(c.Symbols); j++ {
				fmt.Fprintf(&b, "  %s/%s: %s\n", c.Symbols[i], c.Symbols[j], c.Values[i][j])
			}
		}
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "Note: %s\n", w)
	}
	return b.String()
}

var (
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`) // ![alt](url)
	reURL         = regexp.MustCompile(`https?://\S+`)
)

// sanitize strips media references and links from a model reply.
func sanitize(text string) string {
	text = reMarkdownImg.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) > 3500 {
		text = text[:3500]
	}
	return text
}
