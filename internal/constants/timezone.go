package constants

// Common zone ids used in tests.
// These are IANA timezone identifiers.
const (
	// European zones
	TZEuropeMadrid = "Europe/Madrid"
	TZEuropeLondon = "Europe/London"
	TZEuropeDublin = "Europe/Dublin"
	TZEuropeParis  = "Europe/Paris"
	TZEuropeBerlin = "Europe/Berlin"

	// US zones: the multi-zone priority scenario, New York primary,
	// Detroit and Indianapolis sharing its rules from some historical
	// point on.
	TZAmericaNewYork      = "America/New_York"
	TZAmericaDetroit      = "America/Detroit"
	TZAmericaIndianapolis = "America/Indiana/Indianapolis"
	TZAmericaChicago      = "America/Chicago"
	TZAmericaDenver       = "America/Denver"
	TZAmericaPhoenix      = "America/Phoenix"
	TZAmericaAnchorage    = "America/Anchorage"
	TZPacificHonolulu     = "Pacific/Honolulu"
	TZAmericaLosAngeles   = "America/Los_Angeles"
	TZAmericaAdak         = "America/Adak"
	TZAmericaGodthab      = "America/Godthab"
	TZAmericaNuuk         = "America/Nuuk"
	TZAmericaSaoPaulo     = "America/Sao_Paulo"

	// Atlantic zones
	TZAtlanticCanary = "Atlantic/Canary"

	// Special zone
	TZUTC = "UTC"
)
