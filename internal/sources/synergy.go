package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/naborsk/adjutant/internal/llm"
)

const synergySystemPrompt = `You are a sharp business analyst connecting AI developments with market movements.

You receive:
1. Today's AI news headlines
2. Today's market data (indices + tech stocks)
3. What you know about the user's projects and interests

Your job: Find 2-3 concrete connections between AI developments and market signals, personalized to the user.

Format each insight as:
[emoji] AI development -> Market signal -> Business opportunity for the user

Rules:
- Plain text only, NO markdown (no **, no ##, no bullets with *)
- Use arrow -> to show the chain of logic
- Each insight gets one emoji header
- Be specific and actionable, not generic
- Connect dots the user wouldn't see on their own
- If user has projects/interests, tie insights back to them
- Keep each insight to 2-3 sentences max
- If no meaningful connections exist, say so honestly`

const (
	noNewsBlock   = "No AI news available today."
	noMarketBlock = "No market data available."
)

// Synergy cross-references today's AI news with market movement and the
// user's stored insights, then asks the model for connections.
func (r *Registry) Synergy(ctx context.Context, userID int64, text string) (string, error) {
	var (
		news     []NewsItem
		snapshot MarketSnapshot
	)
	var g errgroup.Group
	g.Go(func() error {
		items, err := r.news.Fetch(ctx, 5, 24*time.Hour)
		if err == nil {
			news = items
		}
		return nil
	})
	g.Go(func() error {
		s, err := r.market.Fetch(ctx, nil)
		if err == nil {
			snapshot = s
		}
		return nil
	})
	g.Wait()

	return r.synthesizeSynergy(ctx, userID, text, news, snapshot)
}

// synthesizeSynergy runs the synergy completion over already-fetched news and
// market data. The morning briefing calls it directly to avoid a second fetch.
func (r *Registry) synthesizeSynergy(ctx context.Context, userID int64, text string, news []NewsItem, snapshot MarketSnapshot) (string, error) {
	newsBlock := synergyNewsBlock(news)
	marketBlock := synergyMarketBlock(snapshot)
	if newsBlock == noNewsBlock && marketBlock == noMarketBlock {
		return "No strong synergy patterns today.", nil
	}

	userBlock := "No specific user context available."
	if insights := r.memory.RelevantInsights(ctx, userID, "query", text); insights != "" {
		userBlock = insights
	}

	userPrompt := fmt.Sprintf(
		"AI News Today:\n%s\n\nMarket Data Today:\n%s\n\nUser's Projects & Interests:\n%s\n\n"+
			"Find 2-3 concrete connections between these AI developments and market movements. "+
			"Personalize to the user's projects and interests.",
		newsBlock, marketBlock, userBlock)

	resp, err := r.chain.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: synergySystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "No strong synergy patterns today.", nil
	}
	return resp, nil
}

func synergyNewsBlock(news []NewsItem) string {
	if len(news) == 0 {
		return noNewsBlock
	}
	var lines []string
	for _, n := range news {
		line := fmt.Sprintf("- %s (%s)", n.Title, n.Source)
		if n.Summary != "" {
			line += " - " + clip(n.Summary, 100)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func synergyMarketBlock(s MarketSnapshot) string {
	var lines []string
	for _, q := range s.Indices {
		lines = append(lines, fmt.Sprintf("- %s: %.0f (%+.1f%% %s)", q.Name, q.Price, q.ChangePct, direction(q.ChangePct)))
	}
	for _, q := range s.Tickers {
		lines = append(lines, fmt.Sprintf("- %s: $%.2f (%+.1f%% %s)", q.Name, q.Price, q.ChangePct, direction(q.ChangePct)))
	}
	if len(lines) == 0 {
		return noMarketBlock
	}
	return strings.Join(lines, "\n")
}

func direction(changePct float64) string {
	if changePct >= 0 {
		return "up"
	}
	return "down"
}
