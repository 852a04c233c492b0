// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"testing"
)

func TestThemeUnmarshal_ShowNavbarDefault(t *testing.T) {
	var th Theme
	if err := json.Unmarshal([]byte(`{"id":1,"theme_name":"Default"}`), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !th.ShowNavbar {
		t.Error("ShowNavbar should default to true when absent")
	}
	if th.ThemeName != "Default" {
		t.Errorf("ThemeName: got %q, want %q", th.ThemeName, "Default")
	}
}

func TestThemeUnmarshal_ShowNavbarFalse(t *testing.T) {
	var th Theme
	if err := json.Unmarshal([]byte(`{"id":1,"show_navbar":false}`), &th); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if th.ShowNavbar {
		t.Error("ShowNavbar should be false when explicitly disabled")
	}
}

func TestThemeBoxColor(t *testing.T) {
	var nilTheme *Theme
	if got := nilTheme.BoxColor(); got != "#FFFFFF" {
		t.Errorf("nil theme: got %q, want #FFFFFF", got)
	}
	th := &Theme{HeroBoxColor: "#112233"}
	if got := th.BoxColor(); got != "#112233" {
		t.Errorf("got %q, want #112233", got)
	}
}

func TestPostSummaryAndSideImages(t *testing.T) {
	p := Post{Title: "Title", SideImage2: "/media/b.jpg", SideImage2Blur: "data:blur"}
	if got := p.Summary(); got != "Title" {
		t.Errorf("Summary without excerpt: got %q, want %q", got, "Title")
	}
	p.Excerpt = "Short"
	if got := p.Summary(); got != "Short" {
		t.Errorf("Summary: got %q, want %q", got, "Short")
	}
	imgs := p.SideImages()
	if len(imgs) != 1 || imgs[0].URL != "/media/b.jpg" || imgs[0].Blur != "data:blur" {
		t.Errorf("SideImages: got %+v", imgs)
	}
}
