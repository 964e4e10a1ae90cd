package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"compositor/pkg/timeline"
)

func parseAndValidate(t *testing.T, raw string) timeline.Timeline {
	t.Helper()
	in, tracks, err := timeline.Parse([]byte(raw))
	require.NoError(t, err)
	tl, err := timeline.Validate(in, tracks)
	require.NoError(t, err)
	return tl
}

func TestBuildBaseColorOnly(t *testing.T) {
	tl := parseAndValidate(t, `{"width":640,"height":480,"fps":30,"duration":2,"background":"black","tracks":[]}`)
	prog, err := Build(tl, Options{})
	require.NoError(t, err)
	require.Empty(t, prog.Inputs)
	require.Contains(t, prog.FilterComplex, "color=c=0x000000")
	require.NotEmpty(t, prog.VideoOut)
	require.Equal(t, "aout", prog.AudioOut)
	require.Contains(t, prog.FilterComplex, "anullsrc")
	require.False(t, prog.HasAudio, "a program with zero audio taps must report HasAudio=false so the dispatcher omits -c:a/-map [aout]")
}

func TestBuildAssignsInputIndicesInOrder(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":640,"height":480,"fps":30,"duration":5,
		"tracks":[
			{"id":"v1","type":"video","start":0,"end":5,"src":"a.mp4","w":640,"h":480,"volume":1},
			{"id":"v2","type":"video","start":0,"end":5,"src":"b.mp4","w":640,"h":480,"volume":1,"z":1}
		]
	}`)
	prog, err := Build(tl, Options{Media: map[string]ResolvedMedia{
		"v1": {Path: "/media/a.mp4", HasAudio: true},
		"v2": {Path: "/media/b.mp4", HasAudio: false},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{"/media/a.mp4", "/media/b.mp4"}, prog.Inputs)
	require.Contains(t, prog.FilterComplex, "[0:v]")
	require.Contains(t, prog.FilterComplex, "[1:v]")
	require.Contains(t, prog.FilterComplex, "[0:a]")
	require.NotContains(t, prog.FilterComplex, "[1:a]")
}

func TestBuildMissingResolvedMediaIsBuildError(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":640,"height":480,"fps":30,"duration":5,
		"tracks":[{"id":"v1","type":"video","start":0,"end":5,"src":"a.mp4","w":640,"h":480,"volume":1}]
	}`)
	_, err := Build(tl, Options{})
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestBuildOrdersShapesByZThenPosition(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":100,"height":100,"fps":30,"duration":1,
		"tracks":[
			{"id":"c1","type":"circle","start":0,"end":1,"radius":10,"fill":"red","z":5},
			{"id":"c2","type":"circle","start":0,"end":1,"radius":10,"fill":"blue","z":1}
		]
	}`)
	prog, err := Build(tl, Options{})
	require.NoError(t, err)
	idxC2 := strings.Index(prog.FilterComplex, "c2_shape")
	idxC1 := strings.Index(prog.FilterComplex, "c1_shape")
	require.True(t, idxC2 >= 0 && idxC1 >= 0)
	// c2 has the lower z and must be composited (overlaid) before c1.
	require.Less(t, idxC2, idxC1)
}

func TestBuildBackgroundImageRequiresResolution(t *testing.T) {
	tl := parseAndValidate(t, `{"width":640,"height":480,"fps":30,"duration":1,"backgroundImage":"bg.png","tracks":[]}`)
	_, err := Build(tl, Options{})
	require.Error(t, err)
}

func TestBuildBackgroundImageContainFit(t *testing.T) {
	tl := parseAndValidate(t, `{"width":640,"height":480,"fps":30,"duration":1,"backgroundImage":"bg.png","backgroundFit":"contain","tracks":[]}`)
	prog, err := Build(tl, Options{BackgroundImage: "/media/bg.png"})
	require.NoError(t, err)
	require.Equal(t, []string{"/media/bg.png"}, prog.Inputs)
	require.Contains(t, prog.FilterComplex, "force_original_aspect_ratio=decrease")
}

func TestBuildAudioMixesMultipleTaps(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":640,"height":480,"fps":30,"duration":5,
		"tracks":[
			{"id":"a1","type":"audio","start":0,"end":5,"src":"a.mp3","volume":1},
			{"id":"a2","type":"audio","start":0,"end":5,"src":"b.mp3","volume":0.5}
		]
	}`)
	prog, err := Build(tl, Options{Media: map[string]ResolvedMedia{
		"a1": {Path: "/media/a.mp3", HasAudio: true},
		"a2": {Path: "/media/b.mp3", HasAudio: true},
	}})
	require.NoError(t, err)
	require.Contains(t, prog.FilterComplex, "amix=inputs=2")
	require.True(t, prog.HasAudio)
}

func TestBuildTextAndDatetimeTracks(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":640,"height":480,"fps":30,"duration":5,
		"tracks":[
			{"id":"t1","type":"text","start":0,"end":5,"text":"hello","fontSize":24,"x":10,"y":10},
			{"id":"d1","type":"datetime","start":0,"end":5,"fontSize":18,"format":"%Y-%m-%d","x":10,"y":40}
		]
	}`)
	prog, err := Build(tl, Options{})
	require.NoError(t, err)
	require.Contains(t, prog.FilterComplex, "text='hello'")
	require.Contains(t, prog.FilterComplex, "localtime")
}

func TestBuildWeatherUsesResolvedIcon(t *testing.T) {
	tl := parseAndValidate(t, `{
		"width":640,"height":480,"fps":30,"duration":5,
		"tracks":[{"id":"w1","type":"weather","start":0,"end":5,"width":300,"height":150}]
	}`)
	prog, err := Build(tl, Options{WeatherIcons: map[string]string{"w1": "/media/icon.png"}})
	require.NoError(t, err)
	require.Contains(t, prog.FilterComplex, "movie='/media/icon.png'")
}
