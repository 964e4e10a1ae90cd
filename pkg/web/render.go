package web

import (
	"context"
	"fmt"
	stdcolor "image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"compositor/pkg/artifact"
	"compositor/pkg/asset"
	"compositor/pkg/auth"
	gocolor "compositor/pkg/color"
	"compositor/pkg/ffmpeg"
	"compositor/pkg/graph"
	"compositor/pkg/render"
	"compositor/pkg/timeline"
)

const maxTimelineBody = 8 << 20 // 8 MiB of timeline JSON is generous.

// renderPreviewResponse is returned by the two /preview endpoints, per
// spec.md §6.
type renderPreviewResponse struct {
	PreviewURL string `json:"preview_url"`
	RenderID   string `json:"render_id"`
}

// artifactResponse is a Record plus the public URL its caller fetches it
// from, since Record.File is mediaRoot-relative and the caller only knows
// about MediaURL.
type artifactResponse struct {
	artifact.Record
	FileURL string `json:"file_url"`
}

func (a *App) renderPreview() http.Handler {
	return a.renderHandler(render.ModePreview, true, false)
}

func (a *App) renderFinal() http.Handler {
	return a.renderHandler(render.ModeFinal, false, false)
}

func (a *App) renderImagePreview() http.Handler {
	return a.renderHandler(render.ModeStill, true, true)
}

func (a *App) renderImage() http.Handler {
	return a.renderHandler(render.ModeStill, false, true)
}

// renderHandler builds the shared pipeline behind all four render routes:
// parse, validate, localize, assemble, dispatch, persist. preview
// requests never touch the artifact store; asImage picks the PNG
// extension and the image artifact type.
func (a *App) renderHandler(mode render.Mode, preview, asImage bool) http.Handler {
	ext := "mp4"
	if asImage {
		ext = "png"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		owner, _ := auth.Caller(r.Context())

		body, err := io.ReadAll(io.LimitReader(r.Body, maxTimelineBody+1))
		if err != nil {
			writeError(w, &timeline.ValidationError{Field: "$", Msg: "could not read body"})
			return
		}
		if len(body) > maxTimelineBody {
			writeError(w, &timeline.ValidationError{Field: "$", Msg: "timeline body too large"})
			return
		}

		in, tracks, err := timeline.Parse(body)
		if err != nil {
			writeError(w, err)
			return
		}
		tl, err := timeline.Validate(in, tracks)
		if err != nil {
			writeError(w, err)
			return
		}

		opts, err := a.resolveAssets(r.Context(), tl)
		if err != nil {
			writeError(w, err)
			return
		}
		prog, err := graph.Build(tl, opts)
		if err != nil {
			writeError(w, err)
			return
		}

		if preview {
			a.renderPreviewAndRespond(w, r, prog, tl, mode, ext)
			return
		}
		a.renderFinalAndRespond(w, r, prog, tl, mode, ext, owner.Username, asImage)
	})
}

func (a *App) renderPreviewAndRespond(w http.ResponseWriter, r *http.Request, prog graph.Program, tl timeline.Timeline, mode render.Mode, ext string) {
	outPath, err := a.Store.PreviewPath(ext)
	if err != nil {
		writeError(w, &artifact.StorageError{Err: err})
		return
	}
	renderID := filepath.Base(outPath[:len(outPath)-len(filepath.Ext(outPath))])

	req := render.Request{
		Program: prog, Width: tl.Width, Height: tl.Height, FPS: tl.FPS,
		Duration: tl.EffectiveDuration(), Mode: mode, OutputPath: outPath,
	}
	if err := a.Dispatcher.Render(r.Context(), req); err != nil {
		os.Remove(outPath) //nolint:errcheck
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, renderPreviewResponse{
		PreviewURL: a.MediaURL + "/previews/" + filepath.Base(outPath),
		RenderID:   renderID,
	})
}

func (a *App) renderFinalAndRespond(w http.ResponseWriter, r *http.Request, prog graph.Program, tl timeline.Timeline, mode render.Mode, ext, owner string, asImage bool) {
	typ := artifact.TypeVideo
	if asImage {
		typ = artifact.TypeImage
	}
	orientation := artifact.OrientationLandscape
	if tl.Height > tl.Width {
		orientation = artifact.OrientationPortrait
	}
	name := tl.Name
	if name == "" {
		name = "render"
	}

	rec, err := a.Store.CreateLocked(owner, name, typ, orientation)
	if err != nil {
		writeError(w, err)
		return
	}

	outPath := a.Store.LockedPath(rec.ID, ext)
	req := render.Request{
		Program: prog, Width: tl.Width, Height: tl.Height, FPS: tl.FPS,
		Duration: tl.EffectiveDuration(), Mode: mode, OutputPath: outPath,
	}

	if err := a.Dispatcher.Render(r.Context(), req); err != nil {
		a.Store.Rollback(rec.ID) //nolint:errcheck
		writeError(w, err)
		return
	}

	relFile := filepath.Join("locked", rec.ID+"."+ext)
	saved, err := a.Store.MarkSaved(rec.ID, relFile, tl.EffectiveDuration())
	if err != nil {
		a.Store.Rollback(rec.ID) //nolint:errcheck
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, artifactResponse{
		Record:  saved,
		FileURL: a.MediaURL + "/" + relFile,
	})
}

// resolveAssets localizes every track reference and weather icon ahead of
// graph assembly, since pkg/graph is a pure function with no filesystem
// access of its own (spec.md §4.6/§4.7).
func (a *App) resolveAssets(ctx context.Context, tl timeline.Timeline) (graph.Options, error) {
	media := make(map[string]graph.ResolvedMedia)
	weatherIcons := make(map[string]string)
	backgroundImage := ""

	if tl.BackgroundImage != "" {
		path, err := a.Localizer.Localize(ctx, tl.BackgroundImage)
		if err != nil {
			return graph.Options{}, err
		}
		backgroundImage = path
	}

	for _, tr := range tl.Tracks {
		switch v := tr.(type) {
		case timeline.Video:
			path, err := a.Localizer.Localize(ctx, v.Src)
			if err != nil {
				return graph.Options{}, err
			}
			info, err := a.Engine.Probe(path)
			if err != nil {
				return graph.Options{}, &asset.Error{Ref: v.Src, Err: err}
			}
			media[v.ID] = graph.ResolvedMedia{Path: path, HasAudio: info.HasAudio}
		case timeline.Audio:
			path, err := a.Localizer.Localize(ctx, v.Src)
			if err != nil {
				return graph.Options{}, err
			}
			info, err := a.Engine.Probe(path)
			if err != nil {
				return graph.Options{}, &asset.Error{Ref: v.Src, Err: err}
			}
			media[v.ID] = graph.ResolvedMedia{Path: path, HasAudio: info.HasAudio}
		case timeline.Image:
			path, err := a.Localizer.Localize(ctx, v.Src)
			if err != nil {
				return graph.Options{}, err
			}
			media[v.ID] = graph.ResolvedMedia{Path: path}
		case timeline.Weather:
			icon, err := a.resolveWeatherIcon(ctx, v)
			if err != nil {
				return graph.Options{}, err
			}
			weatherIcons[v.ID] = icon
		}
	}

	return graph.Options{Media: media, WeatherIcons: weatherIcons, BackgroundImage: backgroundImage}, nil
}

// resolveWeatherIcon localizes a weather track's icon reference, falling
// back to a rasterized solid circle when none resolves, per spec.md §4.5
// ("icon (PNG from URL or the colored-circle fallback)").
func (a *App) resolveWeatherIcon(ctx context.Context, w timeline.Weather) (string, error) {
	if w.Data.IconCode != "" {
		if path, err := a.Localizer.Localize(ctx, w.Data.IconCode); err == nil {
			return path, nil
		}
	}

	size := w.IconSize
	if size <= 0 {
		size = 48
	}
	fillToken := w.Colors["icon"]
	if fillToken == "" {
		fillToken = "white"
	}
	rgba := gocolor.Parse(fillToken)

	path, err := a.Store.PreviewPath("png")
	if err != nil {
		return "", &artifact.StorageError{Err: err}
	}
	if err := ffmpeg.RenderFallbackCircle(path, size, stdcolor.RGBA{
		R: rgba.R, G: rgba.G, B: rgba.B, A: uint8(rgba.A * 255),
	}); err != nil {
		return "", &artifact.StorageError{Err: fmt.Errorf("render fallback icon: %w", err)}
	}
	return path, nil
}
