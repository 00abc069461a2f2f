package config

import "testing"

func TestResolveDefaults(t *testing.T) {
	var c Config
	c.Resolve(Flags{})

	if c.Prefix != "contents" {
		t.Errorf("Prefix = %q, want %q", c.Prefix, "contents")
	}
	if c.Workers <= 0 {
		t.Errorf("Workers = %d, want > 0", c.Workers)
	}
	if !c.DecodeTextures || !c.DecodeMeshes || !c.DecodeActors {
		t.Errorf("expected all decode toggles on by default, got %+v", c)
	}
}

func TestResolveRawOnlyDisablesDecoding(t *testing.T) {
	var c Config
	c.Resolve(Flags{RawOnlySet: true, RawOnly: true})

	if !c.RawOnly {
		t.Fatal("RawOnly = false, want true")
	}
	if c.DecodeTextures || c.DecodeMeshes || c.DecodeActors {
		t.Errorf("raw-only should disable all decode toggles, got %+v", c)
	}
}

func TestResolveFlagOverridesFile(t *testing.T) {
	c := Config{Prefix: "from-file", Workers: 2}
	c.Resolve(Flags{Prefix: "from-flag", Workers: 8})

	if c.Prefix != "from-flag" {
		t.Errorf("Prefix = %q, want %q", c.Prefix, "from-flag")
	}
	if c.Workers != 8 {
		t.Errorf("Workers = %d, want 8", c.Workers)
	}
}
