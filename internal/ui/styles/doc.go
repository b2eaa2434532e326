// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling of the rigchat TUI.

Colors are Lip Gloss AdaptiveColor values; the effective background is chosen
once when the theme is built, either detected through termenv or forced by the
dark_mode setting.

# Usage

	theme := styles.NewThemeFor(cfg.Settings.DarkMode)
	header := theme.Header.Render("rigchat")

Status text always carries an ASCII indicator (see StatusIndicators) next to
its color.
*/
package styles
