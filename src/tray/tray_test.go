package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestIconPNG(t *testing.T) {
	data, err := iconPNG()
	if err != nil {
		t.Fatalf("iconPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("icon is %v, expected %dx%d", b, iconSize, iconSize)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("expected transparent margin")
	}
	if _, _, _, a := img.At(5, 5).RGBA(); a == 0 {
		t.Error("expected an opaque corner")
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte("\x89PNG fake")
	ico := wrapICO(payload, 32)

	if len(ico) != 22+len(payload) {
		t.Fatalf("unexpected length %d", len(ico))
	}
	if typ := binary.LittleEndian.Uint16(ico[2:4]); typ != 1 {
		t.Errorf("type = %d, expected 1 (icon)", typ)
	}
	if ico[6] != 32 || ico[7] != 32 {
		t.Errorf("dimensions = %dx%d", ico[6], ico[7])
	}
	if size := binary.LittleEndian.Uint32(ico[14:18]); int(size) != len(payload) {
		t.Errorf("size = %d", size)
	}
	if off := binary.LittleEndian.Uint32(ico[18:22]); off != 22 {
		t.Errorf("offset = %d", off)
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Error("payload not copied")
	}

	if big := wrapICO(payload, 256); big[6] != 0 {
		t.Error("256px must be encoded as 0")
	}
}

func TestVersionLabel(t *testing.T) {
	if got := versionLabel("SnapClip", ""); got != "SnapClip" {
		t.Errorf("got %q", got)
	}
	if got := versionLabel("SnapClip", "v1.2.0"); got != "SnapClip v1.2.0" {
		t.Errorf("got %q", got)
	}
}
