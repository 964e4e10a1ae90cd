package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "width": 320, "height": 240, "fps": 30, "duration": 1.0,
  "background": "#000000",
  "tracks": [
    {"id":"t1","type":"text","start":0,"end":1,"z":0,"text":"hello","fontSize":48,"color":"#ff0000","x":40,"y":100}
  ]
}`

func TestParseAndValidate(t *testing.T) {
	in, tracks, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	tl, err := Validate(in, tracks)
	require.NoError(t, err)
	require.Equal(t, 320, tl.Width)
	require.Equal(t, 30, tl.FPS)
	require.Equal(t, 1.0, tl.EffectiveDuration())
}

func TestParseUnknownType(t *testing.T) {
	_, _, err := Parse([]byte(`{"width":1,"height":1,"tracks":[{"type":"bogus"}]}`))
	require.Error(t, err)
}

func TestValidateRejectsBadCanvas(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":0,"height":10,"tracks":[]}`))
	require.NoError(t, err)
	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestParseRectangleTriangleEllipseAcceptColorAlias(t *testing.T) {
	raw := `{"width":10,"height":10,"tracks":[
		{"id":"r1","type":"rectangle","start":0,"end":1,"x":0,"y":0,"width":1,"height":1,"color":"#00ff00"},
		{"id":"t1","type":"triangle","start":0,"end":1,"x":0,"y":0,"width":1,"height":1,"direction":"up","color":"#00ff00"},
		{"id":"e1","type":"ellipse","start":0,"end":1,"x":0,"y":0,"width":1,"height":1,"color":"#00ff00"}
	]}`
	_, tracks, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	rect, ok := tracks[0].(Rectangle)
	require.True(t, ok)
	require.Equal(t, "#00ff00", rect.Fill)

	tri, ok := tracks[1].(Triangle)
	require.True(t, ok)
	require.Equal(t, "#00ff00", tri.Fill)

	ell, ok := tracks[2].(Ellipse)
	require.True(t, ok)
	require.Equal(t, "#00ff00", ell.Fill)
}

func TestParseRectangleFillTakesPrecedenceOverColor(t *testing.T) {
	raw := `{"width":10,"height":10,"tracks":[
		{"id":"r1","type":"rectangle","start":0,"end":1,"x":0,"y":0,"width":1,"height":1,"fill":"#ff0000","color":"#00ff00"}
	]}`
	_, tracks, err := Parse([]byte(raw))
	require.NoError(t, err)
	rect, ok := tracks[0].(Rectangle)
	require.True(t, ok)
	require.Equal(t, "#ff0000", rect.Fill)
}

func TestValidateEndBeforeStart(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"tracks":[
		{"id":"a","type":"circle","start":2,"end":1,"radius":5,"fill":"red"}
	]}`))
	require.NoError(t, err)
	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestValidateEndExceedsDuration(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"duration":1,"tracks":[
		{"id":"a","type":"circle","start":0,"end":2,"radius":5,"fill":"red"}
	]}`))
	require.NoError(t, err)
	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestVideoTrimDefaultVolume(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"tracks":[
		{"id":"v","type":"video","start":0,"end":1,"src":"a.mp4","w":10,"h":10}
	]}`))
	require.NoError(t, err)
	v := tracks[0].(Video)
	require.Equal(t, 1.0, v.Volume)
	require.False(t, v.HasTrim())

	_, err = Validate(in, tracks)
	require.NoError(t, err)
}

func TestVideoTrimInvalidWindow(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"tracks":[
		{"id":"v","type":"video","start":0,"end":1,"src":"a.mp4","w":10,"h":10,"srcIn":3,"srcOut":1}
	]}`))
	require.NoError(t, err)
	v := tracks[0].(Video)
	require.True(t, v.HasTrim())

	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestDatetimeRequiresFormat(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"tracks":[
		{"id":"d","type":"datetime","start":0,"end":1,"fontSize":10}
	]}`))
	require.NoError(t, err)
	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestTriangleRejectsBadDirection(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"tracks":[
		{"id":"t","type":"triangle","start":0,"end":1,"width":10,"height":10,"direction":"sideways","fill":"red"}
	]}`))
	require.NoError(t, err)
	_, err = Validate(in, tracks)
	require.Error(t, err)
}

func TestZeroDurationFreezesOnOneFrame(t *testing.T) {
	in, tracks, err := Parse([]byte(`{"width":10,"height":10,"fps":25,"tracks":[]}`))
	require.NoError(t, err)
	tl, err := Validate(in, tracks)
	require.NoError(t, err)
	require.Equal(t, 0.0, tl.Duration)
	require.InDelta(t, 1.0/25, tl.EffectiveDuration(), 1e-9)
}
