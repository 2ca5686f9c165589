package screening

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sentimentAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "screening_sentiment_api_duration_sec",
	Help: "Duration of sentiment classification API calls",
})

var sentimentAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "screening_sentiment_api_count",
	Help: "Number of sentiment classification API calls, by HTTP status code",
}, []string{"status"})

var spamAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "screening_spam_api_duration_sec",
	Help: "Duration of spam comment-check API calls",
})

var spamAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "screening_spam_api_count",
	Help: "Number of spam comment-check API calls, by HTTP status code",
}, []string{"status"})

var withheldCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "screening_withheld_count",
	Help: "Number of withhold decisions, by triggering signal",
}, []string{"signal"})
