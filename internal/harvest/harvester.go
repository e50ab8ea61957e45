// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest walks a search engine's result pages through the GUI,
// finds each result by its visual mark, and copies the result links via
// the context menu and clipboard.
//
// The run is strictly sequential and synchronised only by fixed delays;
// the OS pointer and clipboard belong to the run for its whole duration.
package harvest

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litharvest/internal/input"
	"github.com/pdiddy/litharvest/internal/match"
	"github.com/pdiddy/litharvest/internal/screen"
	"github.com/pdiddy/litharvest/pkg/types"
)

// sleep waits for d or until ctx is done. Tests replace it to avoid real delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is the outcome of a full harvest run.
type Result struct {
	RunID   string
	Links   []string
	Pages   []types.PageReport
	Dropped int
}

// Harvester drives one harvest run.
type Harvester struct {
	cfg      types.HarvestConfig
	capturer screen.Capturer
	input    input.Driver
	template *match.Template
	matcher  match.Matcher
	log      zerolog.Logger

	// Artifacts receives a screenshot per suspected capture error. Nil disables them.
	Artifacts ArtifactSink
}

// New returns a Harvester. Zero-valued counts in cfg fall back to the
// defaults of types.DefaultHarvestConfig.
func New(cfg types.HarvestConfig, capturer screen.Capturer, driver input.Driver, tpl *match.Template, log zerolog.Logger) *Harvester {
	def := types.DefaultHarvestConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.TopMarks <= 0 {
		cfg.TopMarks = def.TopMarks
	}
	if cfg.BottomMarks <= 0 {
		cfg.BottomMarks = def.BottomMarks
	}
	h := &Harvester{
		cfg:      cfg,
		capturer: capturer,
		input:    driver,
		template: tpl,
		matcher:  match.NewMatcher(cfg),
		log:      log,
	}
	if cfg.DebugDir != "" {
		h.Artifacts = DirArtifacts{Dir: cfg.DebugDir}
	}
	return h
}

// Run visits exactly MaxPages pages and returns the harvested links.
// Capture and input failures abort the run; a page with missing marks
// simply yields fewer links.
func (h *Harvester) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := h.log.With().Str("run", res.RunID).Logger()
	links := NewLinkLog(h.cfg.Placeholder)

	log.Info().Int("pages", h.cfg.MaxPages).Float64("threshold", h.matcher.Threshold).Msg("harvest started")

	var prev *screen.Frame
	for page := 0; page < h.cfg.MaxPages; page++ {
		rep, top, err := h.harvestPage(ctx, log, page, links)
		if err != nil {
			return Result{}, fmt.Errorf("page %d: %w", page, err)
		}
		if screen.Unchanged(prev, top) {
			log.Warn().Int("page", page).Msg("page looks identical to the previous one; next-page click may have missed")
		}
		prev = top

		log.Info().
			Int("page", page).
			Int("top_matches", rep.TopMatches).
			Int("bottom_matches", rep.BottomMatches).
			Int("harvested", rep.Harvested).
			Int("dropped", rep.Dropped).
			Msg("page done")
		res.Pages = append(res.Pages, rep)
	}

	res.Links = links.Links()
	res.Dropped = links.Dropped()
	log.Info().Int("links", len(res.Links)).Int("dropped", res.Dropped).Msg("harvest finished")
	return res, nil
}

// harvestPage runs the per-page sequence: top half, bottom half, next page.
// It returns the top capture for the page-change diagnostic.
func (h *Harvester) harvestPage(ctx context.Context, log zerolog.Logger, page int, links *LinkLog) (types.PageReport, *screen.Frame, error) {
	rep := types.PageReport{Page: page}

	geom, err := h.capturer.Geometry(h.cfg.Display)
	if err != nil {
		return rep, nil, err
	}

	if err := h.scroll(ctx, h.cfg.ScrollTop, h.cfg.SettleDelay); err != nil {
		return rep, nil, err
	}

	top, points, err := h.detect(h.cfg.TopRegion)
	if err != nil {
		return rep, nil, err
	}
	rep.TopMatches = len(points)
	if err := h.harvestMarks(ctx, log, page, top, first(points, h.cfg.TopMarks), links, &rep); err != nil {
		return rep, nil, err
	}

	// Park the pointer so a lingering hover does not shift the layout while scrolling.
	cx, cy := geom.Center()
	if err := h.input.Move(cx, cy); err != nil {
		return rep, nil, err
	}
	if err := sleep(ctx, h.cfg.SettleDelay); err != nil {
		return rep, nil, err
	}

	if err := h.scroll(ctx, -h.cfg.ScrollBottom, h.cfg.SettleDelay); err != nil {
		return rep, nil, err
	}

	bottom, points, err := h.detect(h.cfg.BottomRegion)
	if err != nil {
		return rep, nil, err
	}
	rep.BottomMatches = len(points)
	if err := h.harvestMarks(ctx, log, page, bottom, last(points, h.cfg.BottomMarks), links, &rep); err != nil {
		return rep, nil, err
	}

	if err := h.nextPage(ctx, geom); err != nil {
		return rep, nil, err
	}
	return rep, top, nil
}

func (h *Harvester) detect(region types.Region) (*screen.Frame, []types.MatchPoint, error) {
	frame, err := h.capturer.Capture(h.cfg.Display, region)
	if err != nil {
		return nil, nil, err
	}
	return frame, h.matcher.Find(frame.Gray(), h.template), nil
}

func (h *Harvester) harvestMarks(ctx context.Context, log zerolog.Logger, page int, frame *screen.Frame, points []types.MatchPoint, links *LinkLog, rep *types.PageReport) error {
	for _, pt := range points {
		link, err := h.extractLink(ctx, log, frame.Geometry, pt)
		if err != nil {
			return err
		}
		if links.Offer(link) {
			rep.Harvested++
		} else {
			rep.Dropped++
			h.reportDuplicate(log, page, frame, pt, link)
		}
		if err := sleep(ctx, h.cfg.MarkDelay); err != nil {
			return err
		}
	}
	return nil
}

// extractLink moves to the result title next to the mark and copies its
// link address through the context menu.
func (h *Harvester) extractLink(ctx context.Context, log zerolog.Logger, geom types.MonitorGeometry, pt types.MatchPoint) (string, error) {
	x, y := geom.ToScreen(pt.X+h.cfg.MarkOffset.DX, pt.Y+h.cfg.MarkOffset.DY)
	if err := h.input.Move(x, y); err != nil {
		return "", err
	}
	if loc, ok := h.input.(input.Locator); ok {
		if px, py := loc.Position(); px != x || py != y {
			log.Debug().Int("want_x", x).Int("want_y", y).Int("x", px).Int("y", py).Msg("pointer did not reach target")
		}
	}
	if err := h.input.Click(input.ButtonRight); err != nil {
		return "", err
	}
	if err := sleep(ctx, h.cfg.MenuDelay); err != nil {
		return "", err
	}
	if err := h.input.Move(x+h.cfg.MenuOffset.DX, y+h.cfg.MenuOffset.DY); err != nil {
		return "", err
	}
	if err := h.input.Click(input.ButtonLeft); err != nil {
		return "", err
	}
	if err := sleep(ctx, h.cfg.ClipboardDelay); err != nil {
		return "", err
	}
	return h.input.ReadClipboard()
}

func (h *Harvester) reportDuplicate(log zerolog.Logger, page int, frame *screen.Frame, pt types.MatchPoint, link string) {
	ev := log.Warn().Int("page", page).Int("x", pt.X).Int("y", pt.Y).Str("link", link)
	if h.Artifacts == nil {
		ev.Msg("duplicate link dropped")
		return
	}
	box := image.Rect(pt.X, pt.Y, pt.X+h.template.Width, pt.Y+h.template.Height)
	path, err := h.Artifacts.Save(page, pt, frame, box)
	if err != nil {
		ev.Err(err).Msg("duplicate link dropped; screenshot not saved")
		return
	}
	ev.Str("screenshot", path).Msg("duplicate link dropped")
}

func (h *Harvester) scroll(ctx context.Context, clicks int, settle time.Duration) error {
	if err := h.input.Scroll(clicks); err != nil {
		return err
	}
	return sleep(ctx, settle)
}

func (h *Harvester) nextPage(ctx context.Context, geom types.MonitorGeometry) error {
	if err := h.input.Scroll(-h.cfg.ScrollNext); err != nil {
		return err
	}
	x := geom.Left + int(float64(geom.Width)*h.cfg.NextX)
	y := geom.Top + int(float64(geom.Height)*h.cfg.NextY)
	if err := h.input.Move(x, y); err != nil {
		return err
	}
	if err := h.input.Click(input.ButtonLeft); err != nil {
		return err
	}
	return sleep(ctx, h.cfg.PageLoadDelay)
}

func first(points []types.MatchPoint, n int) []types.MatchPoint {
	if len(points) > n {
		return points[:n]
	}
	return points
}

func last(points []types.MatchPoint, n int) []types.MatchPoint {
	if len(points) > n {
		return points[len(points)-n:]
	}
	return points
}
