// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "encoding/json"

// Theme is the single active site theme. It controls the hero section and
// whether the category navigation bar is shown on the homepage.
type Theme struct {
	ID           int64  `json:"id"`
	ThemeName    string `json:"theme_name"`
	HeroImage    string `json:"hero_image"`
	HeroImageAlt string `json:"hero_image_alt"`
	HeroBoxColor string `json:"hero_box_color"`
	ShowNavbar   bool   `json:"show_navbar"`
}

// UnmarshalJSON decodes a theme, defaulting ShowNavbar to true when the
// field is missing from the payload.
func (t *Theme) UnmarshalJSON(data []byte) error {
	type plain Theme
	aux := plain{ShowNavbar: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Theme(aux)
	return nil
}

// BoxColor returns the hero overlay color, defaulting to white.
func (t *Theme) BoxColor() string {
	if t == nil || t.HeroBoxColor == "" {
		return "#FFFFFF"
	}
	return t.HeroBoxColor
}
