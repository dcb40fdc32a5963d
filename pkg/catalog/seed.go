package catalog

import "tripkit/pkg/model"

// seedVersion bumps when the built-in data changes; EnsureSeeded re-imports on
// mismatch.
const seedVersion = "1"

// fallbackIDs name the destinations served when scoring produces nothing.
var fallbackIDs = []string{"dest-rovaniemi", "dest-gordes", "dest-naoshima"}

var fallbackJustifications = map[string]string{
	"dest-rovaniemi": "Arctic stillness, long blue hours and aurora skies make Rovaniemi a reliable canvas for any quiet, contemplative trip.",
	"dest-gordes":    "A hilltop village of ochre stone above lavender fields, Gordes photographs beautifully in every season and suits slow, romantic wandering.",
	"dest-naoshima":  "Naoshima's island art installations against the Seto Inland Sea reward travelers who want culture, calm and striking frames in one place.",
}

var seedDestinations = []model.Destination{
	{
		ID:          "dest-rovaniemi",
		Name:        "Rovaniemi",
		Locality:    "Lapland",
		Country:     "Finland",
		Description: "Arctic capital on the Ounasjoki river, ringed by boreal forest, snow hotels and aurora viewpoints.",
		Photogenic:  9,
		Safety:      9,
		Tags:        []string{"arctic", "aurora", "forest", "winter"},
		Vibes:       []string{"peaceful", "remote", "wintry", "contemplative"},
	},
	{
		ID:          "dest-gordes",
		Name:        "Gordes",
		Locality:    "Provence",
		Country:     "France",
		Description: "Hilltop village of dry-stone houses above the Luberon valley, lavender abbeys and golden evening light.",
		Photogenic:  9,
		Safety:      8,
		Tags:        []string{"village", "lavender", "hilltop", "provence"},
		Vibes:       []string{"romantic", "pastoral", "golden", "slow"},
	},
	{
		ID:          "dest-naoshima",
		Name:        "Naoshima",
		Locality:    "Kagawa",
		Country:     "Japan",
		Description: "Art island in the Seto Inland Sea, concrete museums sunk into hillsides and sculpture on quiet beaches.",
		Photogenic:  8,
		Safety:      9,
		Tags:        []string{"island", "art", "museum", "sea"},
		Vibes:       []string{"artistic", "minimal", "quiet", "contemplative"},
	},
	{
		ID:          "dest-lisbon-alfama",
		Name:        "Alfama",
		Locality:    "Lisbon",
		Country:     "Portugal",
		Description: "Lisbon's oldest quarter, tiled facades and laundry lines over steep lanes, fado drifting out of doorways after dark.",
		Photogenic:  8,
		Safety:      7,
		Tags:        []string{"old town", "tiles", "fado", "hills"},
		Vibes:       []string{"nostalgic", "nocturnal", "bohemian", "urban"},
	},
	{
		ID:          "dest-hallstatt",
		Name:        "Hallstatt",
		Locality:    "Salzkammergut",
		Country:     "Austria",
		Description: "Lakeside village squeezed between mountain and water, pastel houses mirrored in a still alpine lake.",
		Photogenic:  9,
		Safety:      9,
		Tags:        []string{"lake", "alpine", "village", "mirror"},
		Vibes:       []string{"romantic", "peaceful", "pastoral", "postcard"},
	},
	{
		ID:          "dest-chefchaouen",
		Name:        "Chefchaouen",
		Locality:    "Rif Mountains",
		Country:     "Morocco",
		Description: "The blue city of the Rif, powder-washed alleys, brass doors and mountain light that shifts all day.",
		Photogenic:  9,
		Safety:      7,
		Tags:        []string{"blue city", "medina", "mountains", "alleys"},
		Vibes:       []string{"adventurous", "vivid", "bohemian", "wandering"},
	},
	{
		ID:          "dest-hoi-an",
		Name:        "Hoi An",
		Locality:    "Quang Nam",
		Country:     "Vietnam",
		Description: "Lantern-lit trading port on the Thu Bon river, yellow walls, tailor shops and riverside markets at dawn.",
		Photogenic:  8,
		Safety:      8,
		Tags:        []string{"lanterns", "river", "old town", "market"},
		Vibes:       []string{"nostalgic", "nocturnal", "romantic", "cinematic"},
	},
	{
		ID:          "dest-faroe",
		Name:        "Saksun",
		Locality:    "Streymoy",
		Country:     "Faroe Islands",
		Description: "Turf-roofed hamlet above a tidal lagoon, sheer green slopes, fog and sudden shafts of north Atlantic light.",
		Photogenic:  9,
		Safety:      9,
		Tags:        []string{"lagoon", "turf roofs", "cliffs", "fog"},
		Vibes:       []string{"remote", "adventurous", "moody", "wintry"},
	},
}

var seedSpots = []model.HiddenSpot{
	// Rovaniemi
	{ID: "spot-rov-1", DestinationID: "dest-rovaniemi", Name: "Ounasvaara summit clearing", Lat: 66.492, Lon: 25.779, PhotoTips: []string{"aurora arcs align north over the river", "tripod and 20s exposures"}, Crowd: model.CrowdQuiet, BestVisitTime: "late night", Authenticity: 0.9, Photogenic: 0.9, Accessibility: 0.7, Safety: 0.9},
	{ID: "spot-rov-2", DestinationID: "dest-rovaniemi", Name: "Arktikum shore path", Lat: 66.508, Lon: 25.724, PhotoTips: []string{"glass tunnel reflects the sky at blue hour"}, Crowd: model.CrowdModerate, BestVisitTime: "blue hour", Authenticity: 0.6, Photogenic: 0.8, Accessibility: 0.95, Safety: 0.95},
	{ID: "spot-rov-3", DestinationID: "dest-rovaniemi", Name: "Vikakongas rapids", Lat: 66.616, Lon: 26.182, PhotoTips: []string{"steam rises off open water below -20C"}, Crowd: model.CrowdQuiet, BestVisitTime: "early morning", Authenticity: 0.95, Photogenic: 0.85, Accessibility: 0.5, Safety: 0.8},
	{ID: "spot-rov-4", DestinationID: "dest-rovaniemi", Name: "Kotisaari island", Lat: 66.478, Lon: 25.755, PhotoTips: []string{"lone log cabin framed by river birches"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.85, Photogenic: 0.9, Accessibility: 0.6, Safety: 0.9},
	{ID: "spot-rov-5", DestinationID: "dest-rovaniemi", Name: "Ounasjoki ice road", Lat: 66.52, Lon: 25.73, PhotoTips: []string{"car lights trace the frozen river after dusk"}, Crowd: model.CrowdQuiet, BestVisitTime: "dusk", Authenticity: 0.8, Photogenic: 0.75, Accessibility: 0.8, Safety: 0.75},

	// Gordes
	{ID: "spot-gor-1", DestinationID: "dest-gordes", Name: "Abbaye de Senanque overlook", Lat: 43.928, Lon: 5.187, PhotoTips: []string{"lavender rows lead to the abbey late June"}, Crowd: model.CrowdBusy, BestVisitTime: "early morning", Authenticity: 0.7, Photogenic: 0.95, Accessibility: 0.8, Safety: 0.9},
	{ID: "spot-gor-2", DestinationID: "dest-gordes", Name: "Village des Bories terraces", Lat: 43.906, Lon: 5.18, PhotoTips: []string{"dry-stone huts catch raking light"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.9, Photogenic: 0.8, Accessibility: 0.7, Safety: 0.9},
	{ID: "spot-gor-3", DestinationID: "dest-gordes", Name: "Route de Cavaillon bend", Lat: 43.91, Lon: 5.194, PhotoTips: []string{"the classic full-village panorama", "arrive before the tour buses"}, Crowd: model.CrowdBusy, BestVisitTime: "golden hour", Authenticity: 0.5, Photogenic: 0.95, Accessibility: 0.95, Safety: 0.9},
	{ID: "spot-gor-4", DestinationID: "dest-gordes", Name: "Rue de la Fontaine Basse", Lat: 43.911, Lon: 5.2, PhotoTips: []string{"shaded stone stairs, shoot upward"}, Crowd: model.CrowdQuiet, BestVisitTime: "midday", Authenticity: 0.85, Photogenic: 0.7, Accessibility: 0.85, Safety: 0.95},
	{ID: "spot-gor-5", DestinationID: "dest-gordes", Name: "Moulin des Bouillons olive grove", Lat: 43.889, Lon: 5.196, PhotoTips: []string{"ancient press and silver leaves at dusk"}, Crowd: model.CrowdQuiet, BestVisitTime: "dusk", Authenticity: 0.9, Photogenic: 0.65, Accessibility: 0.75, Safety: 0.9},

	// Naoshima
	{ID: "spot-nao-1", DestinationID: "dest-naoshima", Name: "Yellow pumpkin pier", Lat: 34.452, Lon: 133.992, PhotoTips: []string{"wait for a ferry to cross behind the sculpture"}, Crowd: model.CrowdBusy, BestVisitTime: "early morning", Authenticity: 0.55, Photogenic: 0.9, Accessibility: 0.95, Safety: 0.95},
	{ID: "spot-nao-2", DestinationID: "dest-naoshima", Name: "Gotanji swimming beach", Lat: 34.449, Lon: 133.995, PhotoTips: []string{"sea, torii and concrete in one frame"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.8, Photogenic: 0.8, Accessibility: 0.9, Safety: 0.95},
	{ID: "spot-nao-3", DestinationID: "dest-naoshima", Name: "Honmura alley shrines", Lat: 34.459, Lon: 134.007, PhotoTips: []string{"art house facades blend into fishing village walls"}, Crowd: model.CrowdModerate, BestVisitTime: "midday", Authenticity: 0.9, Photogenic: 0.75, Accessibility: 0.9, Safety: 0.95},
	{ID: "spot-nao-4", DestinationID: "dest-naoshima", Name: "Benesse coastal walk", Lat: 34.446, Lon: 133.985, PhotoTips: []string{"sculptures against the inland sea, no fences"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.8, Photogenic: 0.85, Accessibility: 0.8, Safety: 0.9},
	{ID: "spot-nao-5", DestinationID: "dest-naoshima", Name: "Miyanoura port lighthouse", Lat: 34.462, Lon: 133.98, PhotoTips: []string{"red sphere glows at blue hour"}, Crowd: model.CrowdQuiet, BestVisitTime: "blue hour", Authenticity: 0.7, Photogenic: 0.7, Accessibility: 0.95, Safety: 0.95},

	// Alfama
	{ID: "spot-alf-1", DestinationID: "dest-lisbon-alfama", Name: "Miradouro de Santa Luzia arcade", Lat: 38.712, Lon: -9.13, PhotoTips: []string{"azulejo panels frame the rooftops"}, Crowd: model.CrowdBusy, BestVisitTime: "golden hour", Authenticity: 0.6, Photogenic: 0.9, Accessibility: 0.9, Safety: 0.85},
	{ID: "spot-alf-2", DestinationID: "dest-lisbon-alfama", Name: "Beco do Mexias washhouse", Lat: 38.711, Lon: -9.127, PhotoTips: []string{"laundry lines over the lane after ten"}, Crowd: model.CrowdQuiet, BestVisitTime: "morning", Authenticity: 0.95, Photogenic: 0.75, Accessibility: 0.8, Safety: 0.8},
	{ID: "spot-alf-3", DestinationID: "dest-lisbon-alfama", Name: "Tram 28 curve at Largo das Portas do Sol", Lat: 38.712, Lon: -9.128, PhotoTips: []string{"pan with the tram, 1/30s"}, Crowd: model.CrowdBusy, BestVisitTime: "midday", Authenticity: 0.65, Photogenic: 0.85, Accessibility: 0.95, Safety: 0.85},
	{ID: "spot-alf-4", DestinationID: "dest-lisbon-alfama", Name: "Fado vadio doorway, Rua dos Remedios", Lat: 38.713, Lon: -9.124, PhotoTips: []string{"ask before shooting singers", "fast prime, no flash"}, Crowd: model.CrowdModerate, BestVisitTime: "late night", Authenticity: 0.95, Photogenic: 0.7, Accessibility: 0.85, Safety: 0.75},
	{ID: "spot-alf-5", DestinationID: "dest-lisbon-alfama", Name: "Chafariz d'El Rei facade", Lat: 38.709, Lon: -9.127, PhotoTips: []string{"moorish revival tiles at soft light"}, Crowd: model.CrowdQuiet, BestVisitTime: "early morning", Authenticity: 0.85, Photogenic: 0.7, Accessibility: 0.9, Safety: 0.85},

	// Hallstatt
	{ID: "spot-hal-1", DestinationID: "dest-hallstatt", Name: "Gosaumulde lake mirror", Lat: 47.562, Lon: 13.648, PhotoTips: []string{"still water before the wind rises at nine"}, Crowd: model.CrowdQuiet, BestVisitTime: "early morning", Authenticity: 0.9, Photogenic: 0.95, Accessibility: 0.7, Safety: 0.9},
	{ID: "spot-hal-2", DestinationID: "dest-hallstatt", Name: "Classic village viewpoint north", Lat: 47.564, Lon: 13.648, PhotoTips: []string{"the postcard frame, worst at noon"}, Crowd: model.CrowdBusy, BestVisitTime: "blue hour", Authenticity: 0.5, Photogenic: 0.95, Accessibility: 0.95, Safety: 0.95},
	{ID: "spot-hal-3", DestinationID: "dest-hallstatt", Name: "Echerntal waterfall path", Lat: 47.553, Lon: 13.642, PhotoTips: []string{"mossy gorge, bring ND filter"}, Crowd: model.CrowdQuiet, BestVisitTime: "midday", Authenticity: 0.9, Photogenic: 0.8, Accessibility: 0.75, Safety: 0.85},
	{ID: "spot-hal-4", DestinationID: "dest-hallstatt", Name: "Salt mine funicular bridge", Lat: 47.561, Lon: 13.646, PhotoTips: []string{"skywalk platform over the rooftops"}, Crowd: model.CrowdModerate, BestVisitTime: "golden hour", Authenticity: 0.7, Photogenic: 0.85, Accessibility: 0.85, Safety: 0.9},
	{ID: "spot-hal-5", DestinationID: "dest-hallstatt", Name: "Obertraun lakeshore larches", Lat: 47.558, Lon: 13.678, PhotoTips: []string{"village across the water, long lens"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.85, Photogenic: 0.8, Accessibility: 0.9, Safety: 0.95},

	// Chefchaouen
	{ID: "spot-che-1", DestinationID: "dest-chefchaouen", Name: "Callejon El Asri stairs", Lat: 35.169, Lon: -5.264, PhotoTips: []string{"the bluest stairway, shoot before eight"}, Crowd: model.CrowdBusy, BestVisitTime: "early morning", Authenticity: 0.6, Photogenic: 0.95, Accessibility: 0.85, Safety: 0.85},
	{ID: "spot-che-2", DestinationID: "dest-chefchaouen", Name: "Ras El Ma spring washhouses", Lat: 35.172, Lon: -5.258, PhotoTips: []string{"daily life at the water channels"}, Crowd: model.CrowdModerate, BestVisitTime: "morning", Authenticity: 0.95, Photogenic: 0.7, Accessibility: 0.8, Safety: 0.85},
	{ID: "spot-che-3", DestinationID: "dest-chefchaouen", Name: "Spanish mosque ridge", Lat: 35.166, Lon: -5.256, PhotoTips: []string{"whole blue city below at sunset"}, Crowd: model.CrowdModerate, BestVisitTime: "golden hour", Authenticity: 0.8, Photogenic: 0.9, Accessibility: 0.6, Safety: 0.75},
	{ID: "spot-che-4", DestinationID: "dest-chefchaouen", Name: "Place Outa el Hammam arcades", Lat: 35.168, Lon: -5.261, PhotoTips: []string{"kasbah walls against blue lanes"}, Crowd: model.CrowdBusy, BestVisitTime: "dusk", Authenticity: 0.7, Photogenic: 0.75, Accessibility: 0.95, Safety: 0.85},
	{ID: "spot-che-5", DestinationID: "dest-chefchaouen", Name: "Tannery lane pigment stalls", Lat: 35.17, Lon: -5.262, PhotoTips: []string{"powder pyramids in brass bowls"}, Crowd: model.CrowdQuiet, BestVisitTime: "midday", Authenticity: 0.9, Photogenic: 0.7, Accessibility: 0.85, Safety: 0.8},

	// Hoi An
	{ID: "spot-hoi-1", DestinationID: "dest-hoi-an", Name: "An Hoi bridge lantern row", Lat: 15.876, Lon: 108.327, PhotoTips: []string{"lanterns reflect after rain", "handheld is fine at f/1.8"}, Crowd: model.CrowdBusy, BestVisitTime: "late night", Authenticity: 0.6, Photogenic: 0.9, Accessibility: 0.95, Safety: 0.85},
	{ID: "spot-hoi-2", DestinationID: "dest-hoi-an", Name: "Thu Bon fish market landing", Lat: 15.877, Lon: 108.335, PhotoTips: []string{"boats unload before sunrise"}, Crowd: model.CrowdModerate, BestVisitTime: "early morning", Authenticity: 0.95, Photogenic: 0.8, Accessibility: 0.85, Safety: 0.85},
	{ID: "spot-hoi-3", DestinationID: "dest-hoi-an", Name: "Tra Que herb gardens", Lat: 15.903, Lon: 108.334, PhotoTips: []string{"rows of mint under conical hats"}, Crowd: model.CrowdQuiet, BestVisitTime: "morning", Authenticity: 0.9, Photogenic: 0.7, Accessibility: 0.8, Safety: 0.95},
	{ID: "spot-hoi-4", DestinationID: "dest-hoi-an", Name: "Japanese bridge side canal", Lat: 15.877, Lon: 108.326, PhotoTips: []string{"skip the bridge front, shoot the canal reflection"}, Crowd: model.CrowdQuiet, BestVisitTime: "blue hour", Authenticity: 0.8, Photogenic: 0.85, Accessibility: 0.9, Safety: 0.9},
	{ID: "spot-hoi-5", DestinationID: "dest-hoi-an", Name: "Cam Kim boatyard", Lat: 15.868, Lon: 108.32, PhotoTips: []string{"wooden hulls and sawdust light"}, Crowd: model.CrowdQuiet, BestVisitTime: "golden hour", Authenticity: 0.95, Photogenic: 0.75, Accessibility: 0.7, Safety: 0.85},

	// Saksun
	{ID: "spot-sak-1", DestinationID: "dest-faroe", Name: "Tidal lagoon sandbar", Lat: 62.248, Lon: -7.175, PhotoTips: []string{"walk out only on falling tide"}, Crowd: model.CrowdQuiet, BestVisitTime: "low tide", Authenticity: 0.95, Photogenic: 0.95, Accessibility: 0.5, Safety: 0.7},
	{ID: "spot-sak-2", DestinationID: "dest-faroe", Name: "Duvugardar turf farm", Lat: 62.249, Lon: -7.177, PhotoTips: []string{"sod roofs against the cliff wall"}, Crowd: model.CrowdQuiet, BestVisitTime: "overcast midday", Authenticity: 0.9, Photogenic: 0.85, Accessibility: 0.8, Safety: 0.9},
	{ID: "spot-sak-3", DestinationID: "dest-faroe", Name: "Church knoll above the bay", Lat: 62.2485, Lon: -7.178, PhotoTips: []string{"white church, black roof, green wall of rock"}, Crowd: model.CrowdModerate, BestVisitTime: "golden hour", Authenticity: 0.8, Photogenic: 0.9, Accessibility: 0.85, Safety: 0.9},
	{ID: "spot-sak-4", DestinationID: "dest-faroe", Name: "Mulafossur detour, Gasadalur", Lat: 62.107, Lon: -7.434, PhotoTips: []string{"waterfall into open sea, wind shakes the tripod"}, Crowd: model.CrowdModerate, BestVisitTime: "golden hour", Authenticity: 0.75, Photogenic: 0.95, Accessibility: 0.75, Safety: 0.8},
	{ID: "spot-sak-5", DestinationID: "dest-faroe", Name: "Streymoy ridge sheep tracks", Lat: 62.23, Lon: -7.15, PhotoTips: []string{"fog banks roll through in minutes"}, Crowd: model.CrowdQuiet, BestVisitTime: "any", Authenticity: 0.95, Photogenic: 0.8, Accessibility: 0.4, Safety: 0.65},
}
