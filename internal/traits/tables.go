package traits

// Breed tables are matched as case-insensitive substrings of each listed breed,
// so "Poodle" covers "Toy Poodle" and "Poodle (Miniature)".

var hypoallergenicBreeds = []string{
	"poodle",
	"doodle",
	"cavapoo",
	"cockapoo",
	"maltipoo",
	"schnoodle",
	"yorkipoo",
	"bichon frise",
	"maltese",
	"shih tzu",
	"havanese",
	"schnauzer",
	"yorkshire terrier",
	"portuguese water dog",
	"lagotto romagnolo",
	"soft coated wheaten terrier",
	"kerry blue terrier",
	"chinese crested",
	"xoloitzcuintli",
	"basenji",
}

var heavySheddingBreeds = []string{
	"golden retriever",
	"labrador retriever",
	"great pyrenees",
	"german shepherd",
	"husky",
	"alaskan malamute",
	"bernese mountain dog",
	"saint bernard",
	"st. bernard",
	"newfoundland",
	"akita",
	"chow chow",
	"samoyed",
	"collie",
	"australian shepherd",
	"corgi",
	"shiba inu",
	"pug",
}

var vocalBreeds = []string{
	"beagle",
	"basset hound",
	"bloodhound",
	"coonhound",
	"husky",
	"chihuahua",
	"dachshund",
	"pomeranian",
	"jack russell terrier",
	"shetland sheepdog",
	"miniature schnauzer",
	"yorkshire terrier",
}

var highEnergyBreeds = []string{
	"border collie",
	"australian shepherd",
	"australian cattle dog",
	"cattle dog",
	"heeler",
	"belgian malinois",
	"jack russell terrier",
	"husky",
	"weimaraner",
	"vizsla",
	"dalmatian",
	"pointer",
	"springer spaniel",
	"labrador retriever",
	"german shepherd",
	"boxer",
}

var lowEnergyBreeds = []string{
	"basset hound",
	"bulldog",
	"greyhound",
	"shih tzu",
	"pug",
	"cavalier king charles spaniel",
	"great dane",
	"mastiff",
	"chow chow",
	"pekingese",
	"bichon frise",
}

var lowMaintenanceBreeds = []string{
	"beagle",
	"boston terrier",
	"french bulldog",
	"greyhound",
	"whippet",
	"chihuahua",
	"dachshund",
	"boxer",
	"pug",
	"basenji",
}

var vocalTags = []string{"barky", "vocal", "barks", "howl"}

var energeticTags = []string{"energetic", "high energy", "high-energy", "active"}

var calmTags = []string{"calm", "laid-back", "laid back", "low energy", "low-energy", "mellow", "couch"}

// breedFamilies maps a crossbreed marker to the parent breeds it descends from.
var breedFamilies = map[string][]string{
	"goldendoodle": {"golden retriever", "poodle"},
	"labradoodle":  {"labrador retriever", "poodle"},
	"bernedoodle":  {"bernese mountain dog", "poodle"},
	"aussiedoodle": {"australian shepherd", "poodle"},
	"sheepadoodle": {"old english sheepdog", "poodle"},
	"cavapoo":      {"cavalier king charles spaniel", "poodle"},
	"cockapoo":     {"cocker spaniel", "poodle"},
	"maltipoo":     {"maltese", "poodle"},
	"yorkipoo":     {"yorkshire terrier", "poodle"},
	"schnoodle":    {"schnauzer", "poodle"},
	"doodle":       {"poodle"},
	"puggle":       {"pug", "beagle"},
	"pitsky":       {"pit bull", "husky"},
	"chiweenie":    {"chihuahua", "dachshund"},
	"shepsky":      {"german shepherd", "husky"},
	"lab":          {"labrador retriever"},
	"pittie":       {"pit bull"},
	"heeler":       {"australian cattle dog"},
}
