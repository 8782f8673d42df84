package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
)

// Markdown formats a prediction result for terminal or chat display
func Markdown(result *prediction.PredictionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Predicted Title: %s\n", result.PredictedTitle)

	for i, job := range result.TopSimilar {
		fmt.Fprintf(&b, "\n**%d. %s** - %s (%s > %s)\n", i+1, job.JobTitle, job.Company, job.Sector, job.Industry)
		fmt.Fprintf(&b, "   Location: %s, %s | Salary: %s\n", job.Location, job.Country, job.SalaryRange)
		fmt.Fprintf(&b, "   Qualifications: %s | Similarity: %s\n", job.Qualifications, Cosine(job.Cosine))
	}

	return b.String()
}

// Cosine formats a similarity score with the shortest exact representation
func Cosine(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
