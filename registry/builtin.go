package registry

// BuiltinVersion identifies the compiled-in signature table.
const BuiltinVersion = "builtin-2026.08"

// builtinEntries is the compiled-in booking-engine signature table.
// Tier 1 engines gate further enrichment; tier 2 covers OTA widgets and
// other recognized-but-low-priority software.
var builtinEntries = []SignatureEntry{
	{
		Name:     "Cloudbeds",
		Domains:  []string{"cloudbeds.com", "hotels.cloudbeds.com"},
		Keywords: []string{"cloudbeds"},
		Tier:     TierPursue,
	},
	{
		Name:     "SiteMinder",
		Domains:  []string{"thebookingbutton.com", "book-directonline.com", "direct-book.com", "siteminder.com"},
		Keywords: []string{"thebookingbutton", "siteminder"},
		Tier:     TierPursue,
	},
	{
		Name:     "Little Hotelier",
		Domains:  []string{"littlehotelier.com", "app.littlehotelier.com"},
		Keywords: []string{"littlehotelier"},
		Tier:     TierPursue,
	},
	{
		Name:     "ResNexus",
		Domains:  []string{"resnexus.com"},
		Keywords: []string{"resnexus"},
		Tier:     TierPursue,
	},
	{
		Name:     "ThinkReservations",
		Domains:  []string{"thinkreservations.com", "secure.thinkreservations.com"},
		Keywords: []string{"thinkreservations"},
		Tier:     TierPursue,
	},
	{
		Name:     "Mews",
		Domains:  []string{"mews.com", "mews.li", "app.mews.com"},
		Keywords: []string{"mews-distributor", "mews.com"},
		Tier:     TierPursue,
	},
	{
		Name:     "WebRezPro",
		Domains:  []string{"webrezpro.com", "secure.webrez.com", "webrez.com"},
		Keywords: []string{"webrezpro"},
		Tier:     TierPursue,
	},
	{
		Name:     "innRoad",
		Domains:  []string{"innroad.com", "app.innroad.com"},
		Keywords: []string{"innroad"},
		Tier:     TierPursue,
	},
	{
		Name:     "Guesty",
		Domains:  []string{"guesty.com", "guestybookings.com"},
		Keywords: []string{"guesty"},
		Tier:     TierPursue,
	},
	{
		Name:     "Lodgify",
		Domains:  []string{"lodgify.com", "checkout.lodgify.com"},
		Keywords: []string{"lodgify"},
		Tier:     TierPursue,
	},
	{
		Name:     "Checkfront",
		Domains:  []string{"checkfront.com"},
		Keywords: []string{"checkfront"},
		Tier:     TierPursue,
	},
	{
		Name:     "RoomRaccoon",
		Domains:  []string{"roomraccoon.com"},
		Keywords: []string{"roomraccoon"},
		Tier:     TierPursue,
	},
	{
		Name:     "Sirvoy",
		Domains:  []string{"sirvoy.com", "secured.sirvoy.com"},
		Keywords: []string{"sirvoy"},
		Tier:     TierPursue,
	},
	{
		Name:     "FreeToBook",
		Domains:  []string{"freetobook.com", "portal.freetobook.com"},
		Keywords: []string{"freetobook"},
		Tier:     TierPursue,
	},
	{
		Name:     "Newbook",
		Domains:  []string{"newbook.cloud", "newbooksoftware.com"},
		Keywords: []string{"newbook"},
		Tier:     TierPursue,
	},
	{
		Name:     "Seekom",
		Domains:  []string{"seekom.com", "book.seekom.com"},
		Keywords: []string{"seekom"},
		Tier:     TierPursue,
	},
	{
		Name:     "eviivo",
		Domains:  []string{"eviivo.com", "secure.eviivo.com"},
		Keywords: []string{"eviivo"},
		Tier:     TierPursue,
	},
	{
		Name:     "RMS Cloud",
		Domains:  []string{"rmscloud.com", "bookings.rmscloud.com"},
		Keywords: []string{"rmscloud"},
		Tier:     TierPursue,
	},
	{
		Name:     "ResBook",
		Domains:  []string{"resbook.com", "resbook.co.nz"},
		Keywords: []string{"resbook"},
		Tier:     TierPursue,
	},
	{
		Name:     "Beds24",
		Domains:  []string{"beds24.com"},
		Keywords: []string{"beds24"},
		Tier:     TierPursue,
	},

	// OTA widgets: recognized but low priority for enrichment.
	{
		Name:     "Booking.com",
		Domains:  []string{"booking.com", "bstatic.com"},
		Keywords: []string{"booking.com/searchbox"},
		Tier:     TierLow,
	},
	{
		Name:     "Expedia",
		Domains:  []string{"expedia.com", "expediapartnercentral.com"},
		Tier:     TierLow,
	},
	{
		Name:     "Airbnb",
		Domains:  []string{"airbnb.com", "airbnb.co.uk", "airbnb.ca"},
		Tier:     TierLow,
	},
	{
		Name:     "TripAdvisor",
		Domains:  []string{"tripadvisor.com", "tripadvisor.co.uk"},
		Tier:     TierLow,
	},
	{
		Name:     "Hotels.com",
		Domains:  []string{"hotels.com"},
		Tier:     TierLow,
	},
}

// Builtin returns a snapshot of the compiled-in table.
func Builtin() *Snapshot {
	return NewSnapshot(BuiltinVersion, builtinEntries)
}
