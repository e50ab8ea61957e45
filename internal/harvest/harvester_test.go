// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litharvest/internal/input"
	"github.com/pdiddy/litharvest/internal/match"
	"github.com/pdiddy/litharvest/internal/screen"
	"github.com/pdiddy/litharvest/pkg/types"
)

func TestMain(m *testing.M) {
	// No real delays in tests; still honour cancellation.
	sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	os.Exit(m.Run())
}

// --- fakes ---

type fakeCapturer struct {
	frame    *screen.Frame
	geom     types.MonitorGeometry
	captures []types.Region
	err      error
}

func (f *fakeCapturer) Geometry(int) (types.MonitorGeometry, error) { return f.geom, nil }

func (f *fakeCapturer) Capture(_ int, region types.Region) (*screen.Frame, error) {
	f.captures = append(f.captures, region)
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

type point struct{ x, y int }

// fakeDriver models a browser: a right-click opens the context menu at the
// pointer, and the next left-click copies the link under that point.
type fakeDriver struct {
	pos        point
	menuAt     *point
	clipboard  string
	linkAt     func(x, y int) string
	nextClicks []point
	scrolls    []int
	rightAt    []point
}

func (d *fakeDriver) Move(x, y int) error { d.pos = point{x, y}; return nil }

func (d *fakeDriver) Click(b input.Button) error {
	switch {
	case b == input.ButtonRight:
		p := d.pos
		d.menuAt = &p
		d.rightAt = append(d.rightAt, p)
	case d.menuAt != nil:
		d.clipboard = d.linkAt(d.menuAt.x, d.menuAt.y)
		d.menuAt = nil
	default:
		d.nextClicks = append(d.nextClicks, d.pos)
	}
	return nil
}

func (d *fakeDriver) Scroll(clicks int) error { d.scrolls = append(d.scrolls, clicks); return nil }

func (d *fakeDriver) ReadClipboard() (string, error) { return d.clipboard, nil }

type countingSink struct {
	saved []types.MatchPoint
	pages []int
}

func (s *countingSink) Save(page int, pt types.MatchPoint, _ *screen.Frame, _ image.Rectangle) (string, error) {
	s.saved = append(s.saved, pt)
	s.pages = append(s.pages, page)
	return fmt.Sprintf("page%02d_x%d_y%d.png", page, pt.X, pt.Y), nil
}

// --- synthetic page ---

func markPattern() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 16, 16))
	state := uint32(2463534242)
	for i := range g.Pix {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		if state&1 == 1 {
			g.Pix[i] = 230
		} else {
			g.Pix[i] = 30
		}
	}
	return g
}

// injected marks: six in the upper half, four in the lower half, 40px apart.
var injected = []point{
	{40, 100}, {40, 140}, {40, 180}, {40, 220}, {40, 260}, {40, 300},
	{40, 420}, {40, 480}, {40, 540}, {40, 600},
}

var pageGeom = types.MonitorGeometry{Left: 200, Top: 200, Width: 400, Height: 700}

func syntheticFrame(marks []point) *screen.Frame {
	g := image.NewGray(image.Rect(0, 0, pageGeom.Width, pageGeom.Height))
	for i := range g.Pix {
		g.Pix[i] = 128
	}
	pat := markPattern()
	for _, m := range marks {
		for j := 0; j < 16; j++ {
			for i := 0; i < 16; i++ {
				g.SetGray(m.x+i, m.y+j, pat.GrayAt(i, j))
			}
		}
	}
	return screen.NewFrame(g, pageGeom)
}

func testConfig(pages int) types.HarvestConfig {
	cfg := types.DefaultHarvestConfig()
	cfg.MaxPages = pages
	cfg.DebugDir = ""
	return cfg
}

func mustTemplate(t *testing.T) *match.Template {
	t.Helper()
	tpl, err := match.NewTemplate(markPattern())
	require.NoError(t, err)
	return tpl
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func newTestHarvester(t *testing.T, cfg types.HarvestConfig, capt screen.Capturer, drv input.Driver) (*Harvester, *countingSink) {
	t.Helper()
	h := New(cfg, capt, drv, mustTemplate(t), nopLogger())
	sink := &countingSink{}
	h.Artifacts = sink
	return h, sink
}

// linkFor names the result whose title sits at screen (x, y).
func linkFor(x, y int) string {
	return fmt.Sprintf("https://scholar.example.org/r/%d/%d", x, y)
}

// expectedLink is the link harvested for a mark injected at image point p.
func expectedLink(p point) string {
	return linkFor(pageGeom.Left+p.x+45, pageGeom.Top+p.y-70)
}

// --- tests ---

func TestRun_TenMarksInInjectionOrder(t *testing.T) {
	capt := &fakeCapturer{frame: syntheticFrame(injected), geom: pageGeom}
	drv := &fakeDriver{linkAt: linkFor}
	h, sink := newTestHarvester(t, testConfig(1), capt, drv)

	res, err := h.Run(context.Background())
	require.NoError(t, err)

	want := make([]string, len(injected))
	for i, p := range injected {
		want[i] = expectedLink(p)
	}
	assert.Equal(t, want, res.Links)
	assert.Zero(t, res.Dropped)
	assert.Empty(t, sink.saved)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, types.PageReport{Page: 0, TopMatches: 10, BottomMatches: 10, Harvested: 10}, res.Pages[0])
	assert.NotEmpty(t, res.RunID)
}

func TestRun_PageSequence(t *testing.T) {
	cfg := testConfig(1)
	capt := &fakeCapturer{frame: syntheticFrame(injected), geom: pageGeom}
	drv := &fakeDriver{linkAt: linkFor}
	h, _ := newTestHarvester(t, cfg, capt, drv)

	_, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.Region{cfg.TopRegion, cfg.BottomRegion}, capt.captures)
	assert.Equal(t, []int{cfg.ScrollTop, -cfg.ScrollBottom, -cfg.ScrollNext}, drv.scrolls)
	require.Len(t, drv.nextClicks, 1)
	wantY := pageGeom.Top + int(float64(pageGeom.Height)*cfg.NextY)
	assert.Equal(t, point{pageGeom.Left + pageGeom.Width/2, wantY}, drv.nextClicks[0])
	assert.Len(t, drv.rightAt, 10)
}

func TestRun_ConsecutiveDuplicateDropped(t *testing.T) {
	// The second mark's title resolves to the same link as the first.
	dupX, dupY := pageGeom.Left+injected[1].x+45, pageGeom.Top+injected[1].y-70
	firstX, firstY := pageGeom.Left+injected[0].x+45, pageGeom.Top+injected[0].y-70
	drv := &fakeDriver{linkAt: func(x, y int) string {
		if x == dupX && y == dupY {
			return linkFor(firstX, firstY)
		}
		return linkFor(x, y)
	}}
	capt := &fakeCapturer{frame: syntheticFrame(injected), geom: pageGeom}
	h, sink := newTestHarvester(t, testConfig(1), capt, drv)

	res, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Links, 9)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, injected[1].x, sink.saved[0].X)
	assert.Equal(t, injected[1].y, sink.saved[0].Y)
	assert.Equal(t, []int{0}, sink.pages)
	assert.Equal(t, 1, res.Pages[0].Dropped)
	assert.Equal(t, 9, res.Pages[0].Harvested)
}

func TestRun_PlaceholderRepeatsKept(t *testing.T) {
	cfg := testConfig(1)
	drv := &fakeDriver{linkAt: func(int, int) string { return cfg.Placeholder }}
	capt := &fakeCapturer{frame: syntheticFrame(injected), geom: pageGeom}
	h, sink := newTestHarvester(t, cfg, capt, drv)

	res, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Links, 10)
	assert.Zero(t, res.Dropped)
	assert.Empty(t, sink.saved)
}

func TestRun_ExactlyMaxPagesWithoutMarks(t *testing.T) {
	capt := &fakeCapturer{frame: syntheticFrame(nil), geom: pageGeom}
	drv := &fakeDriver{linkAt: linkFor}
	h, _ := newTestHarvester(t, testConfig(3), capt, drv)

	res, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Links)
	assert.Len(t, res.Pages, 3)
	assert.Len(t, drv.nextClicks, 3)
	assert.Len(t, capt.captures, 6)
	for i, p := range res.Pages {
		assert.Equal(t, i, p.Page)
	}
}

func TestRun_PartialPageProceeds(t *testing.T) {
	capt := &fakeCapturer{frame: syntheticFrame(injected[:3]), geom: pageGeom}
	drv := &fakeDriver{linkAt: linkFor}
	h, _ := newTestHarvester(t, testConfig(2), capt, drv)

	res, err := h.Run(context.Background())
	require.NoError(t, err)

	// Three marks: the top pass takes all three, the bottom pass the same three again.
	// The bottom pass's first link differs from the top pass's last, so nothing drops.
	assert.Len(t, res.Pages, 2)
	assert.Equal(t, 3, res.Pages[0].TopMatches)
	assert.Len(t, res.Links, 12)
}

func TestRun_CaptureFailureIsFatal(t *testing.T) {
	capt := &fakeCapturer{geom: pageGeom, err: errors.New("display capture unavailable")}
	drv := &fakeDriver{linkAt: linkFor}
	h, _ := newTestHarvester(t, testConfig(5), capt, drv)

	res, err := h.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "display capture unavailable")
	assert.Empty(t, res.Links)
	assert.Len(t, capt.captures, 1)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capt := &fakeCapturer{frame: syntheticFrame(injected), geom: pageGeom}
	h, _ := newTestHarvester(t, testConfig(2), capt, &fakeDriver{linkAt: linkFor})

	_, err := h.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	h := New(types.HarvestConfig{DebugDir: "dbg"}, &fakeCapturer{}, &fakeDriver{}, mustTemplate(t), nopLogger())
	assert.Equal(t, 50, h.cfg.MaxPages)
	assert.Equal(t, 6, h.cfg.TopMarks)
	assert.Equal(t, 4, h.cfg.BottomMarks)
	assert.Equal(t, 0.8, h.matcher.Threshold)
	assert.Equal(t, DirArtifacts{Dir: "dbg"}, h.Artifacts)
}

func TestFirstLast(t *testing.T) {
	pts := []types.MatchPoint{{X: 1}, {X: 2}, {X: 3}}
	assert.Equal(t, pts[:2], first(pts, 2))
	assert.Equal(t, pts, first(pts, 6))
	assert.Equal(t, pts[1:], last(pts, 2))
	assert.Equal(t, pts, last(pts, 4))
	assert.Empty(t, last(nil, 4))
}
