package domain

import "strings"

// DeviceType is the coarse device class a session was opened from.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
)

// mobileIndicators are matched case-insensitively as substrings of the device
// hint (typically a User-Agent string). Anything that matches none of them,
// including an empty hint, classifies as desktop.
var mobileIndicators = []string{
	"mobile",
	"android",
	"iphone",
	"ipad",
	"tablet",
	"phone",
}

// ClassifyDevice maps a raw device hint to a DeviceType.
func ClassifyDevice(hint string) DeviceType {
	h := strings.ToLower(hint)
	for _, ind := range mobileIndicators {
		if strings.Contains(h, ind) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}
