package trafficjunky

import (
	"strings"
	"testing"
)

const listingFixture = `
<html><body>
  <h1>MEDIA LIBRARY</h1>
  <div class="creativeContainer" data-id="1032530511">
    <label class="creativeName">EN_Cosplay_NSFW_Generic_Seras_ID-F40623FA.mp4</label>
  </div>
  <div class="creativeContainer" data-id="1032530512">
    <label class="creativeName">banner_one.png</label>
  </div>
  <div class="creativeContainer">
    <label class="creativeName">no-id-tile.png</label>
  </div>
  <ul class="pagination">
    <li><a rel="next" href="/media-library?tab=video&amp;page=2">Next</a></li>
  </ul>
</body></html>`

func TestParseListing(t *testing.T) {
	page, err := parseListing(strings.NewReader(listingFixture))
	if err != nil {
		t.Fatalf("parseListing() error = %v", err)
	}

	if len(page.Entries) != 2 {
		t.Fatalf("parsed %d entries, want 2 (tiles without data-id are ignored)", len(page.Entries))
	}
	if page.Entries[0].ID != "1032530511" {
		t.Errorf("entry id = %q, want 1032530511", page.Entries[0].ID)
	}
	if page.Entries[0].DisplayName != "EN_Cosplay_NSFW_Generic_Seras_ID-F40623FA.mp4" {
		t.Errorf("display name = %q", page.Entries[0].DisplayName)
	}
	if page.NextURL != "/media-library?tab=video&page=2" {
		t.Errorf("next url = %q", page.NextURL)
	}
}

func TestParseListingLastPage(t *testing.T) {
	page, err := parseListing(strings.NewReader(`<html><body>
		<div class="creativeContainer" data-id="1"><label class="creativeName">a.mp4</label></div>
	</body></html>`))
	if err != nil {
		t.Fatalf("parseListing() error = %v", err)
	}
	if page.NextURL != "" {
		t.Errorf("next url = %q, want empty on last page", page.NextURL)
	}
}

func TestFindFormToken(t *testing.T) {
	doc, err := parseHTML(strings.NewReader(`<html><body>
		<form method="post" action="/login">
			<input type="hidden" name="_token" value="abc123">
			<input type="text" name="username">
		</form>
	</body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := findFormToken(doc); got != "abc123" {
		t.Errorf("findFormToken() = %q, want abc123", got)
	}
}

func TestFindUploadForm(t *testing.T) {
	doc, err := parseHTML(strings.NewReader(`<html><body>
		<form class="dropzone uploadForm" action="/media-library/upload/store" method="post"></form>
	</body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := findUploadForm(doc); got != "/media-library/upload/store" {
		t.Errorf("findUploadForm() = %q", got)
	}
}
