package enhancement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEnhancementPrompt_ConfirmedLine(t *testing.T) {
	prompt := BuildEnhancementPrompt("Jane Doe", []string{"Kubernetes"}, map[string]string{
		"Kubernetes": "Ran a 20-node cluster",
	})

	assert.Contains(t, prompt, "\n- **Kubernetes**: Ran a 20-node cluster\n")
	assert.Contains(t, prompt, "Jane Doe\n\nAdditional Experience:\n- **Kubernetes**")
}

func TestBuildEnhancementPrompt_ListsAllKeywords(t *testing.T) {
	prompt := BuildEnhancementPrompt("resume", []string{"Kubernetes", "Terraform", "Go"}, map[string]string{
		"Terraform": "Wrote modules",
	})

	assert.Contains(t, prompt, "in **bold**: Kubernetes, Terraform, Go\n")
	assert.NotContains(t, prompt, "**Kubernetes**:")
	assert.NotContains(t, prompt, "**Go**:")
}

func TestBuildEnhancementPrompt_NoConfirmations(t *testing.T) {
	prompt := BuildEnhancementPrompt("Jane Doe\nEngineer", []string{"Kafka"}, nil)

	assert.NotContains(t, prompt, AdditionalExperienceHeader)
	assert.Contains(t, prompt, "---\nJane Doe\nEngineer\n---")
}

func TestBuildEnhancementPrompt_Sections(t *testing.T) {
	prompt := BuildEnhancementPrompt("r", nil, nil)

	assert.Contains(t, prompt, "Summary, Skills, Experience")
	assert.Contains(t, prompt, "bullet points")
	assert.Contains(t, prompt, "in **bold**: \n")
}

func TestBuildEnhancementPrompt_DoesNotExpandUserText(t *testing.T) {
	prompt := BuildEnhancementPrompt("Built {{.Keywords}} tooling", []string{"Go"}, nil)

	assert.Contains(t, prompt, "Built {{.Keywords}} tooling")
}

func TestBuildEnhancementPrompt_Deterministic(t *testing.T) {
	keywords := []string{"A", "B", "C", "D"}
	confirmed := map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"}

	first := BuildEnhancementPrompt("r", keywords, confirmed)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, BuildEnhancementPrompt("r", keywords, confirmed))
	}
}

func TestConfirmedLines_FollowKeywordOrder(t *testing.T) {
	lines := ConfirmedLines(
		[]string{"Terraform", "Kubernetes", "Go"},
		map[string]string{"Go": "10 years", "Terraform": "IaC for 3 teams"},
	)

	assert.Equal(t, []string{
		"- **Terraform**: IaC for 3 teams",
		"- **Go**: 10 years",
	}, lines)
}

func TestConfirmedLines_DuplicateKeyword(t *testing.T) {
	lines := ConfirmedLines([]string{"AWS", "GCP", "AWS"}, map[string]string{"AWS": "Lambda"})

	assert.Equal(t, []string{"- **AWS**: Lambda"}, lines)
}

func TestConfirmedLines_IgnoresUnlistedKeys(t *testing.T) {
	lines := ConfirmedLines([]string{"Go"}, map[string]string{"Rust": "stale"})

	assert.Empty(t, lines)
}

func TestEnrichResume(t *testing.T) {
	got := EnrichResume("Resume", []string{"Go", "SQL"}, map[string]string{"Go": "g", "SQL": "s"})

	assert.Equal(t, "Resume\n\nAdditional Experience:\n- **Go**: g\n- **SQL**: s", got)
	assert.Equal(t, 1, strings.Count(got, AdditionalExperienceHeader))
}
