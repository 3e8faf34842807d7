package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Assignment Real Generator</title><style>h1{color:red}</style></head>
<body>
  <h1>Assignment Real Generator</h1>
  <script>window.__state = {"secret": true};</script>
  <noscript>You need to enable JavaScript to run this app.</noscript>
  <p>Upload your <a href="/help">assignment</a>.</p>
  <div class="drop">Click or Drag PDF / Image here</div>
</body>
</html>`

func TestVisibleText(t *testing.T) {
	got := VisibleText(page)

	assert.Equal(t, "Assignment Real Generator Upload your assignment . Click or Drag PDF / Image here", got)
	assert.NotContains(t, got, "secret")
	assert.NotContains(t, got, "enable JavaScript")
	assert.NotContains(t, got, "color:red")
}

func TestVisibleText_Empty(t *testing.T) {
	assert.Empty(t, VisibleText(""))
	assert.Empty(t, VisibleText("<html><head><title>t</title></head><body></body></html>"))
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(page, "http://localhost:5000")
	require.NoError(t, err)

	assert.Contains(t, md, "# Assignment Real Generator")
	assert.Contains(t, md, "[assignment](http://localhost:5000/help)")
	assert.Contains(t, md, "Click or Drag PDF / Image here")
	assert.NotContains(t, md, "secret")
}

func TestDocument(t *testing.T) {
	doc, err := Document(page, "http://localhost:5000", "WAIT_TIMEOUT: marker -- missing")
	require.NoError(t, err)

	assert.Contains(t, doc, "<!-- url: http://localhost:5000 -->\n")
	assert.Contains(t, doc, "<!-- failure: WAIT_TIMEOUT: marker - - missing -->\n")
	assert.Contains(t, doc, "# Assignment Real Generator")
	assert.True(t, doc[len(doc)-1] == '\n')
}
