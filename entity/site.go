package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxOffset is the largest widget offset, in percent of the viewport, accepted from stored settings.
const maxOffset = 45

type ApiSite struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	URL                  string          `json:"url"`
	SiteUUID             string          `json:"site_uuid"`
	WidgetSettings       json.RawMessage `json:"widget_settings"`
	WorkingHours         WorkingHours    `json:"working_hours"`
	AutoReplyEnabled     bool            `json:"auto_reply_enabled"`
	AutoReplyMessage     string          `json:"auto_reply_message"`
	TelegramBotToken     string          `json:"telegram_bot_token"`
	TelegramReferralCode string          `json:"telegram_referral_code"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TelegramConnected reports whether a bot token is stored for the site.
func (s *ApiSite) TelegramConnected() bool {
	return s.TelegramBotToken != ""
}

// Widget decodes the stored widget settings on top of the defaults.
func (s *ApiSite) Widget() WidgetSettings {
	return ParseWidgetSettings(s.WidgetSettings)
}

type WidgetSettings struct {
	Desktop         DesktopWidget `json:"desktop"`
	Mobile          MobileWidget  `json:"mobile"`
	RequireTelegram bool          `json:"requireTelegram"`
}

type DesktopWidget struct {
	PrimaryColor   string `json:"primaryColor"`
	TextColor      string `json:"textColor"`
	WelcomeMessage string `json:"welcomeMessage"`
	ButtonText     string `json:"buttonText"`
	Position       string `json:"position" validate:"oneof=left right"`
	OffsetX        Offset `json:"offsetX"`
	OffsetY        Offset `json:"offsetY"`
	AutoOpen       bool   `json:"autoOpen"`
	AutoOpenDelay  int    `json:"autoOpenDelay"`
	SoundEnabled   bool   `json:"soundEnabled"`
}

type MobileWidget struct {
	Show           bool   `json:"show"`
	Position       string `json:"position" validate:"oneof=left right"`
	OffsetX        Offset `json:"offsetX"`
	OffsetY        Offset `json:"offsetY"`
	ButtonSize     string `json:"buttonSize" validate:"oneof=small medium large"`
	FullscreenChat bool   `json:"fullscreenChat"`
}

func DefaultDesktopWidget() DesktopWidget {
	return DesktopWidget{
		PrimaryColor:   "#3b82f6",
		TextColor:      "#ffffff",
		WelcomeMessage: "Hello! How can we help you?",
		ButtonText:     "Message us",
		Position:       "right",
		OffsetX:        2,
		OffsetY:        2,
		AutoOpenDelay:  5,
		SoundEnabled:   true,
	}
}

func DefaultMobileWidget() MobileWidget {
	return MobileWidget{
		Show:           true,
		Position:       "right",
		OffsetX:        2,
		OffsetY:        2,
		ButtonSize:     "medium",
		FullscreenChat: true,
	}
}

// Offset accepts both numbers and numeric strings; anything else decodes to NaN.
type Offset float64

func (o *Offset) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*o = Offset(math.NaN())
		return nil
	}
	*o = Offset(v)
	return nil
}

// SanitizeOffset replaces unparsable or out of range offsets with def.
func SanitizeOffset(v Offset, def Offset) Offset {
	f := float64(v)
	if math.IsNaN(f) || f > maxOffset {
		return def
	}
	return v
}

func ParseWidgetSettings(raw json.RawMessage) WidgetSettings {
	ws := WidgetSettings{
		Desktop: DefaultDesktopWidget(),
		Mobile:  DefaultMobileWidget(),
	}
	if len(raw) == 0 {
		return ws
	}

	var parts struct {
		Desktop         json.RawMessage `json:"desktop"`
		Mobile          json.RawMessage `json:"mobile"`
		RequireTelegram *bool           `json:"requireTelegram"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ws
	}

	if len(parts.Desktop) > 0 {
		d := DefaultDesktopWidget()
		if err := json.Unmarshal(parts.Desktop, &d); err == nil {
			def := DefaultDesktopWidget()
			d.OffsetX = SanitizeOffset(d.OffsetX, def.OffsetX)
			d.OffsetY = SanitizeOffset(d.OffsetY, def.OffsetY)
			ws.Desktop = d
		}
	}
	if len(parts.Mobile) > 0 {
		m := DefaultMobileWidget()
		if err := json.Unmarshal(parts.Mobile, &m); err == nil {
			def := DefaultMobileWidget()
			m.OffsetX = SanitizeOffset(m.OffsetX, def.OffsetX)
			m.OffsetY = SanitizeOffset(m.OffsetY, def.OffsetY)
			ws.Mobile = m
		}
	}
	if parts.RequireTelegram != nil {
		ws.RequireTelegram = *parts.RequireTelegram
	}
	return ws
}

type WorkingHours struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Normalized fills the defaults used when a site has no schedule configured.
func (w WorkingHours) Normalized() WorkingHours {
	if w.Start == "" && w.End == "" {
		return WorkingHours{Start: "09:00", End: "18:00", Timezone: "Europe/Moscow"}
	}
	if w.Start == "" {
		w.Start = "09:00"
	}
	if w.End == "" {
		w.End = "18:00"
	}
	if w.Timezone == "" {
		w.Timezone = "Europe/Moscow"
	}
	return w
}

type CreateSiteRequest struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// SiteUpdate is a partial site update; nil fields are not sent.
type SiteUpdate struct {
	Name             *string         `json:"name,omitempty"`
	URL              *string         `json:"url,omitempty" validate:"omitempty,url"`
	WidgetSettings   *WidgetSettings `json:"widget_settings,omitempty"`
	WorkingHours     *WorkingHours   `json:"working_hours,omitempty"`
	AutoReplyEnabled *bool           `json:"auto_reply_enabled,omitempty"`
	AutoReplyMessage *string         `json:"auto_reply_message,omitempty"`
	TelegramBotToken *string         `json:"telegram_bot_token,omitempty"`
}

type WidgetCode struct {
	EmbedCode string `json:"embed_code"`
}

type TelegramSetup struct {
	Ok           bool   `json:"ok"`
	WebhookURL   string `json:"webhook_url"`
	BotUsername  string `json:"bot_username"`
	ReferralLink string `json:"referral_link"`
}

// EmbedCode renders the widget loader snippet for a site.
func EmbedCode(cdnURL, siteUUID string) (string, error) {
	id, err := uuid.Parse(siteUUID)
	if err != nil {
		return "", fmt.Errorf("invalid site uuid %q: %w", siteUUID, err)
	}
	return fmt.Sprintf(`<script src="%s" data-site-id="%s"></script>`, cdnURL, id.String()), nil
}
