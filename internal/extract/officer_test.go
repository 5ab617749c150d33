package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
)

const proxyHTML = `
<html><body>
<p>Directors and Executive Officers</p>
<table>
<tr><td>Name</td><td>Age</td><td>Position</td></tr>
<tr><td>Arthur D. Levinson</td><td>74</td><td>Chairman of the Board</td></tr>
<tr><td>Timothy D. Cook</td><td>63</td><td>Chief Executive Officer and Director</td></tr>
<tr><td>Luca Maestri</td><td>60</td><td>Senior Vice President, Chief Financial Officer</td></tr>
<tr><td>Total Compensation</td><td>—</td><td>—</td></tr>
</table>
</body></html>`

func TestOfficerExtractorTable(t *testing.T) {
	e := NewOfficerExtractor()
	candidates, err := e.Extract(context.Background(), proxyHTML, testFiling)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	chairman := candidates[0]
	assert.Equal(t, models.KindDirector, chairman.Kind, "board-only roles become director candidates")
	assert.Equal(t, "Arthur D. Levinson", chairman.Director.Name)
	assert.Equal(t, RuleBasedConfidence, chairman.Confidence)

	ceo := candidates[1]
	assert.Equal(t, models.KindOfficer, ceo.Kind, "officer plus director keeps the officer kind")
	assert.Equal(t, "Timothy D. Cook", ceo.Officer.Name)
	assert.Equal(t, "Chief Executive Officer and Director", ceo.Officer.Title)
	assert.True(t, ceo.Officer.IsExecutive)
	assert.Equal(t, 63, ceo.Officer.Age)

	cfo := candidates[2]
	assert.Equal(t, models.KindOfficer, cfo.Kind)
	assert.Equal(t, "Luca Maestri", cfo.Officer.Name)
	assert.True(t, cfo.Officer.IsExecutive)
}

func TestOfficerExtractorNarrative(t *testing.T) {
	content := `<html><body>
<p>Biographical Information</p>
<p>Jane C. Smith, 62, has served as a director of the Company since 2015 and
chairs the audit committee</p>
</body></html>`

	e := NewOfficerExtractor()
	candidates, err := e.Extract(context.Background(), content, testFiling)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	bio := candidates[0]
	assert.Equal(t, models.KindDirector, bio.Kind)
	assert.Equal(t, "Jane C. Smith", bio.Director.Name)
	assert.InDelta(t, 0.85, bio.Confidence, 0.001)
}

func TestOfficerExtractorEmptyInput(t *testing.T) {
	e := NewOfficerExtractor()
	candidates, err := e.Extract(context.Background(), "", testFiling)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestClassifyRole(t *testing.T) {
	tests := []struct {
		title       string
		isDirector  bool
		isOfficer   bool
		isExecutive bool
	}{
		{"Chief Executive Officer", false, true, true},
		{"Chief Executive Officer and Director", true, true, true},
		{"Chairman of the Board", true, false, false},
		{"Director", true, false, false},
		{"Senior Vice President, General Counsel", false, true, true},
		{"Vice President of Engineering", false, true, false},
		{"Consultant", false, false, false},
		{"", false, false, false},
	}
	for _, tt := range tests {
		d, o, x := classifyRole(tt.title)
		assert.Equal(t, tt.isDirector, d, "director flag for %q", tt.title)
		assert.Equal(t, tt.isOfficer, o, "officer flag for %q", tt.title)
		assert.Equal(t, tt.isExecutive, x, "executive flag for %q", tt.title)
	}
}

func TestSplitNameAndTitle(t *testing.T) {
	name, title := splitNameAndTitle("Jane Smith Chief Executive Officer")
	assert.Equal(t, "Jane Smith", name)
	assert.Equal(t, "Chief Executive Officer", title)

	name, title = splitNameAndTitle("Arthur D. Levinson")
	assert.Equal(t, "Arthur D. Levinson", name)
	assert.Empty(t, title)
}
