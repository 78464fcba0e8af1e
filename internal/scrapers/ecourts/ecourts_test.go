package ecourts

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/portal/portaltest"

	"github.com/stretchr/testify/require"
)

const testCaseID = "AB12CD3456EF7890"

func loadFixture(t *testing.T) string {
	t.Helper()
	contents, err := os.ReadFile("testdata/result.html")
	require.NoError(t, err)
	return string(contents)
}

// withModal renders the fixture with an open order panel showing the given document.
func withModal(fixture, documentLink string) string {
	if documentLink == "" {
		return fixture
	}
	modal := fmt.Sprintf(
		`<div class="modal fade show"><div id="modal_order_body"><object data="%s"></object></div><button class="btn-close">x</button></div>`,
		documentLink,
	)
	return strings.Replace(fixture, "<!--MODAL-->", modal, 1)
}

// resultPage is a result page that shows every region of the fixture.
func resultPage(t *testing.T) *portaltest.Page {
	t.Helper()
	page := portaltest.New(loadFixture(t))
	page.Hide(portal.DefaultSelectors().ValidationBox)
	return page
}

func testTimeouts() portal.Timeouts {
	return portal.Timeouts{}
}
