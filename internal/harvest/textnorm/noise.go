// internal/harvest/textnorm/noise.go
package textnorm

// noiseLabels are canonical forms that carry no dish information:
// beverages, condiments, portion words, day names and assorted menu
// boilerplate observed in harvested data. An exact match discards the
// item.
var noiseLabels = map[string]bool{}

func init() {
	for _, label := range []string{
		"cup", "way", "sol", "uni", "can", "mix", "hot", "mac", "red", "hat", "nem", "pop",
		"nan", "res", "the", "cafe", "inch", "thin", "soda", "cake", "bowl", "tune", "live",
		"mild", "club", "cola", "lime", "beer", "sole", "well", "solo", "coka", "fire",
		"roll", "dark", "wine", "chef", "sake", "diet", "soup", "fool", "pils", "coke",
		"pick", "sides", "super", "spicy", "large", "order", "unity", "pique",
		"small", "juice", "combo", "coffe", "toast", "limes", "liver", "lemon", "sauce",
		"fried", "green", "limca", "fruit", "jumbo", "meats", "cocoa", "basic", "pound",
		"plate", "coast", "drink", "black", "white", "house", "water", "plain",
		"lunch", "sunny", "truly", "pepsi", "baked", "chips", "crush", "banks", "fanta",
		"shake", "royal", "garden", "powers", "crusts", "virtue", "waters", "people",
		"single", "friday", "labneh", "uptown", "liters", "juices", "corona", "crimes",
		"robust", "tender", "pieces", "pizzas", "salumi", "loaded", "sunset", "scoops",
		"gloves", "sunday", "medium", "coffee", "farmer", "parlor", "clever", "donpx,",
		"sprite", "extras", "simple", "heater", "taste", "makers", "bottle", "drinks",
		"deluxe", "unique", "chef's", "lunch a", "lunch b", "lunch c", "lunch d",
		"lunch e", "lunch f", "lunch g", "lunch h", "lunch i", "lunch j", "lunch k",
		"lunch l", "lunch m", "lunch n", "lunch o", "lunch p", "lunch q", "lunch r",
		"lunch s", "lunch t", "lunch u", "lunch v", "lunch w", "lunch x", "lunch y",
		"lunch z", "pop ups", "buffalo", "napkins", "chopped", "phoenix", "cluster",
		"patriot", "one egg", "the egg", "ketchup", "baskets", "genesis", "average",
		"v juice", "chamber", "or less", "two egg", "absolut", "chronic", "biscuit",
		"imports", "degrees", "supreme", "century", "mondays", "regular", "special",
		"doubles", "t shirt", "classic", "awesome", "western", "original", "utensils",
		"seasonal", "one meat", "triad in", "toppings", "specials", "desserts",
		"can coke", "thums up", "pick two", "exclusiv", "can soda",
		"saturday", "the kind", "diabetes", "sandwich", "can cola", "cocacola",
		"downtown", "birthday", "two rice", "official", "rotating",
		"can pops", "thursday", "coke can", "soda pop", "paradise", "festival",
		"take off", "tuesdays", "new york", "chutneys", "principe", "full pot",
		"manhattan", "benchmark", "roll of garbage bags", "garbage bag each",
		"sani spritz spray", "toilet paper", "kids cups no spill locking lid",
		"kleenex box", "sani wipes",
	} {
		noiseLabels[label] = true
	}
}
