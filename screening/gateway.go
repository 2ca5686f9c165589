package screening

import (
	"context"
	"log/slog"
	"time"
)

// NegativityThreshold is how far NEGATIVE confidence must exceed POSITIVE
// before new content is withheld for moderator review.
const NegativityThreshold = 0.8

// callTimeout bounds each external scoring call so a slow collaborator
// cannot stall content creation.
const callTimeout = 5 * time.Second

// Gateway combines the sentiment classifier and the spam checker into a
// single withhold decision. Either client may be nil, in which case that
// signal is skipped. Collaborator failures fail open: the forum stays
// available and the failure is logged.
type Gateway struct {
	Sentiment *SentimentClient
	Spam      *SpamClient

	Log *slog.Logger
}

func NewGateway(sentiment *SentimentClient, spam *SpamClient, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default().With("system", "screening")
	}
	return &Gateway{
		Sentiment: sentiment,
		Spam:      spam,
		Log:       log,
	}
}

// ShouldWithhold decides whether newly submitted content gets the withheld
// state. The decision is the OR of the sentiment signal
// (negative - positive > threshold) and the spam signal.
func (g *Gateway) ShouldWithhold(ctx context.Context, author AuthorMeta, title, content string) bool {
	text := content
	if title != "" {
		text = title + " " + content
	}

	withhold := false

	if g.Sentiment != nil {
		cctx, cancel := context.WithTimeout(ctx, callTimeout)
		scores, err := g.Sentiment.Classify(cctx, text)
		cancel()
		if err != nil {
			// fail open: never block content creation on a scoring outage
			g.Log.Warn("sentiment classification failed, skipping signal", "err", err)
		} else if scores.Negative-scores.Positive > NegativityThreshold {
			g.Log.Info("withholding content on sentiment signal",
				"negative", scores.Negative, "positive", scores.Positive)
			withheldCount.WithLabelValues("sentiment").Inc()
			withhold = true
		}
	}

	if g.Spam != nil {
		cctx, cancel := context.WithTimeout(ctx, callTimeout)
		isSpam, err := g.Spam.Check(cctx, author, content)
		cancel()
		if err != nil {
			g.Log.Warn("spam check failed, skipping signal", "err", err)
		} else if isSpam {
			g.Log.Info("withholding content on spam signal", "author", author.Username)
			withheldCount.WithLabelValues("spam").Inc()
			withhold = true
		}
	}

	return withhold
}
