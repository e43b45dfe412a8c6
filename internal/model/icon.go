package model

import (
	"fmt"
	"strings"
)

// Icon is a closed set of event icons. The zero value means "not chosen";
// Event.Normalize replaces it with the category default.
type Icon uint8

const (
	IconUnset Icon = iota
	IconCalendar
	IconStar
	IconHeart
	IconCake
	IconGift
	IconMusic
	IconDumbbell
	IconBriefcase
	IconTrophy
	IconFilm
	IconCart
	IconPlane
	IconSun
	iconCount
)

var iconNames = [iconCount]string{
	IconUnset:     "",
	IconCalendar:  "Calendar",
	IconStar:      "Star",
	IconHeart:     "Heart",
	IconCake:      "Cake",
	IconGift:      "Gift",
	IconMusic:     "Music",
	IconDumbbell:  "Dumbbell",
	IconBriefcase: "Briefcase",
	IconTrophy:    "Trophy",
	IconFilm:      "Film",
	IconCart:      "ShoppingCart",
	IconPlane:     "Plane",
	IconSun:       "Sun",
}

// iconGlyphs is what terminals and the HTML shell render for each icon.
var iconGlyphs = [iconCount]string{
	IconUnset:     "📅",
	IconCalendar:  "📅",
	IconStar:      "⭐",
	IconHeart:     "❤️",
	IconCake:      "🎂",
	IconGift:      "🎁",
	IconMusic:     "🎵",
	IconDumbbell:  "🏋️",
	IconBriefcase: "💼",
	IconTrophy:    "🏆",
	IconFilm:      "🎬",
	IconCart:      "🛒",
	IconPlane:     "✈️",
	IconSun:       "☀️",
}

// Icons lists every selectable icon in picker order.
func Icons() []Icon {
	out := make([]Icon, 0, iconCount-1)
	for i := IconCalendar; i < iconCount; i++ {
		out = append(out, i)
	}
	return out
}

func (i Icon) Valid() bool {
	return i > IconUnset && i < iconCount
}

func (i Icon) String() string {
	if i >= iconCount {
		return fmt.Sprintf("Icon(%d)", uint8(i))
	}
	return iconNames[i]
}

func (i Icon) Glyph() string {
	if i >= iconCount {
		return iconGlyphs[IconUnset]
	}
	return iconGlyphs[i]
}

// ParseIcon matches names case-insensitively. An empty name is IconUnset.
func ParseIcon(s string) (Icon, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IconUnset, nil
	}
	for i := IconCalendar; i < iconCount; i++ {
		if strings.EqualFold(iconNames[i], s) {
			return i, nil
		}
	}
	return IconUnset, fmt.Errorf("%w: %q", ErrInvalidIcon, s)
}

func (i Icon) MarshalText() ([]byte, error) {
	if i >= iconCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIcon, uint8(i))
	}
	return []byte(iconNames[i]), nil
}

func (i *Icon) UnmarshalText(b []byte) error {
	parsed, err := ParseIcon(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// GeneralCategory is the protected fallback category.
const GeneralCategory = "General"

// DefaultCategories seeds a fresh category collection.
var DefaultCategories = []string{
	"General",
	"Anniversary",
	"Birthday",
	"Concert",
	"Fitness",
	"Holiday",
	"Meeting",
	"Milestone",
	"Movie Night",
	"Shopping",
	"Travel",
	"Vacation",
}

var categoryIcons = map[string]Icon{
	"general":     IconCalendar,
	"anniversary": IconHeart,
	"birthday":    IconCake,
	"concert":     IconMusic,
	"fitness":     IconDumbbell,
	"holiday":     IconStar,
	"meeting":     IconBriefcase,
	"milestone":   IconTrophy,
	"movie night": IconFilm,
	"shopping":    IconCart,
	"travel":      IconPlane,
	"vacation":    IconSun,
}

// DefaultIconFor suggests an icon for a category; custom categories get the
// calendar icon.
func DefaultIconFor(category string) Icon {
	if icon, ok := categoryIcons[strings.ToLower(strings.TrimSpace(category))]; ok {
		return icon
	}
	return IconCalendar
}
