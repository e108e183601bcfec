package services

// Persona is a client identity presented to the Innertube API.
//
// ClientID is the numeric protocol id sent as X-YouTube-Client-Name.
type Persona struct {
	Name      string
	Version   string
	ClientID  int
	UserAgent string
}

// DefaultPersonas is the fixed order in which the player endpoint is tried.
var DefaultPersonas = []Persona{
	{
		Name:      "ANDROID_MUSIC",
		Version:   "6.42.52",
		ClientID:  21,
		UserAgent: "com.google.android.apps.youtube.music/6.42.52 (Linux; U; Android 11) gzip",
	},
	{
		Name:      "ANDROID_VR",
		Version:   "1.43.32",
		ClientID:  28,
		UserAgent: "com.google.android.apps.youtube.vr.oculus/1.43.32 (Linux; U; Android 12L; eureka-user Build/SQ3A.220605.009.A1) gzip",
	},
	{
		Name:      "IOS",
		Version:   "19.45.4",
		ClientID:  5,
		UserAgent: "com.google.ios.youtube/19.45.4 (iPhone16,2; U; CPU iOS 18_1_0 like Mac OS X;)",
	},
	{
		Name:      "TVHTML5_SIMPLY_EMBEDDED_PLAYER",
		Version:   "2.0",
		ClientID:  85,
		UserAgent: "Mozilla/5.0 (PlayStation; PlayStation 4/11.00) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.4 Safari/605.1.15",
	},
}

// WebRemix is the desktop web persona used for catalog calls (search, next, browse).
var WebRemix = Persona{
	Name:      "WEB_REMIX",
	Version:   "1.20231204.01.00",
	ClientID:  67,
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}
