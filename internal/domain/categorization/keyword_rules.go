package categorization

// rule builds a KeywordRule, parsing wildcard markers once at load time.
func rule(category, subcategory string, priority int, keywords ...string) KeywordRule {
	parsed := make([]KeywordPattern, 0, len(keywords))
	for _, raw := range keywords {
		kw := ParseKeyword(raw)
		if kw.Text != "" {
			parsed = append(parsed, kw)
		}
	}
	return KeywordRule{
		Category:    category,
		Subcategory: subcategory,
		Keywords:    parsed,
		Priority:    priority,
	}
}

// DefaultKeywordRules returns the static category keyword table. Higher
// priority means the rule is checked first; ties keep declaration order.
// A trailing "*" anchors a keyword to the start of the description, a
// leading "*" to the end.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		// Income signals first so refunds and payroll never land in expenses.
		rule("Income", "", 90,
			"payroll", "direct deposit", "salary", "paycheck", "tax refund",
			"dividend", "interest earned", "reimbursement", "cashback",
			"employer", "net pay", "wages",
		),

		rule("Housing", "Rent & Mortgage", 80,
			"rent payment", "mortgage", "landlord", "property management",
			"hoa dues", "apartment",
		),

		rule("Bills & Utilities", "Electricity", 75,
			"electric bill", "edp", "power company", "duke energy",
		),
		rule("Bills & Utilities", "Water", 75,
			"water bill", "epal", "water utility",
		),
		rule("Bills & Utilities", "Internet & Phone", 75,
			"comcast", "xfinity", "verizon", "t mobile", "vodafone", "meo",
			"internet bill", "mobile bill",
		),
		rule("Bills & Utilities", "Gas", 75,
			"gas bill", "natural gas", "galp energia",
		),

		rule("Food & Dining", "Coffee Shops", 70,
			"starbucks", "dunkin", "costa coffee", "coffee", "espresso",
			"*cafe",
		),
		rule("Food & Dining", "Fast Food", 70,
			"mcdonald", "burger king", "kfc", "wendys", "taco bell",
			"chipotle", "five guys", "popeyes",
		),
		rule("Food & Dining", "Delivery", 70,
			"doordash", "grubhub", "uber eats", "glovo", "deliveroo",
			"postmates", "bolt food",
		),
		rule("Food & Dining", "Restaurants", 68,
			"restaurant", "bistro", "pizzeria", "pizza hut", "dominos",
			"sushi", "steakhouse", "*grill",
		),

		rule("Groceries", "", 65,
			"walmart", "kroger", "safeway", "whole foods", "trader joe",
			"aldi", "lidl", "costco", "continente", "pingo doce", "tesco",
			"supermarket", "grocery", "*market",
		),

		rule("Transportation", "Rideshare", 60,
			"uber*", "lyft", "free now", "taxi",
		),
		rule("Transportation", "Fuel", 60,
			"shell", "chevron", "exxon", "texaco", "gas station", "fuel",
		),
		rule("Transportation", "Public Transit", 60,
			"metro", "transit", "amtrak", "mta", "train ticket",
		),
		rule("Transportation", "Parking & Tolls", 60,
			"parking", "parkmobile", "toll",
		),

		rule("Shopping", "Online", 55,
			"amazon", "ebay", "etsy", "aliexpress",
		),
		rule("Shopping", "Retail", 55,
			"target", "best buy", "ikea", "nike", "home depot", "lowes",
			"apple store",
		),

		rule("Entertainment", "Streaming", 50,
			"netflix", "spotify", "hulu", "disney plus", "hbo max",
			"youtube premium", "prime video", "paramount plus",
		),
		rule("Entertainment", "Gaming", 50,
			"steam games", "playstation", "xbox", "nintendo",
		),
		rule("Entertainment", "Movies & Events", 50,
			"cinema", "theater", "ticketmaster", "amc",
		),

		rule("Health & Fitness", "Pharmacy", 50,
			"pharmacy", "cvs", "walgreens", "rite aid", "farmacia",
		),
		rule("Health & Fitness", "Fitness", 50,
			"gym", "planet fitness", "crossfit", "yoga studio",
		),
		rule("Health & Fitness", "Medical", 48,
			"dental", "clinic", "medical center", "urgent care",
		),

		rule("Travel", "Flights", 45,
			"airline", "ryanair", "delta air", "united air", "tap portugal",
			"easyjet",
		),
		rule("Travel", "Lodging", 45,
			"airbnb", "booking com", "expedia", "marriott", "hilton", "hotel",
		),

		rule("Financial", "Fees & Charges", 40,
			"atm withdrawal", "bank fee", "wire fee", "overdraft",
			"interest charge", "annual fee",
		),
		rule("Financial", "Insurance", 40,
			"insurance", "geico", "state farm", "allianz",
		),
		rule("Financial", "Loans", 40,
			"loan payment", "student loan", "lending",
		),

		rule("Education", "", 40,
			"tuition", "udemy", "coursera", "university", "bookstore",
			"textbook",
		),

		rule("Personal Care", "", 35,
			"salon", "barber", "spa", "sephora", "cosmetics", "haircut",
		),
	}
}
