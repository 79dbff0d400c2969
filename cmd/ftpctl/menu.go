package main

import (
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/jackc/pgx/v5/pgtype"
)

// seasonalMenu is the festive takeaway menu loaded by seed.
var seasonalMenu = []menuSeed{
	// Roasts
	{
		name:        "Whole Roasted Turkey",
		description: "Served with traditional sage, apple stuffing and cranberry sauce",
		category:    enum.MenuCategoryRoasts,
		pricing:     []menuPrice{price("6kgs For 8 people", 550), price("8kgs For 10 people", 695)},
		allergens:   []string{"D", "G"},
	},
	{
		name:        "Whole Roasted Turkey with Sides",
		description: "Includes 2 side dishes and 1 sauce. Served with traditional sage, apple stuffing and cranberry sauce",
		category:    enum.MenuCategoryRoasts,
		pricing:     []menuPrice{price("6kgs For 8 people", 650), price("8kgs For 10 people", 850)},
		allergens:   []string{"D", "G"},
	},
	{
		name:        "Honey Smoked Ham",
		description: "Served with pineapple relish",
		category:    enum.MenuCategoryRoasts,
		pricing:     []menuPrice{price("2kgs For 6 people", 490), price("4kgs For 12 people", 790)},
		allergens:   []string{"D", "P"},
	},
	{
		name:        "Wild Mushroom and Chickpea Wellington",
		description: "Roasted parsnips, carrots, fresh herbs, walnuts, puff pastry",
		category:    enum.MenuCategoryRoasts,
		pricing:     []menuPrice{price("For 1 person", 95)},
		allergens:   []string{"G", "N", "PB"},
	},

	// Smoked salmon
	{
		name:        "House Cured Smoked Salmon",
		description: "Horseradish sauce, capers, dill pickle, lemon, red onion and rye bread",
		category:    enum.MenuCategorySmokedSalmon,
		pricing:     []menuPrice{price("350g", 150)},
		allergens:   []string{"G", "S"},
	},

	// Potatoes
	{name: "Creamed Potatoes", category: enum.MenuCategoryPotatoes, pricing: sidePricing(65, 105), allergens: []string{"D", "V"}},
	{name: "Roasted Potatoes", category: enum.MenuCategoryPotatoes, pricing: sidePricing(65, 105), allergens: []string{"D", "V"}},

	// Vegetables
	{name: "Brussel Sprouts", category: enum.MenuCategoryVegetables, pricing: sidePricing(70, 105), allergens: []string{"D", "V"}},
	{name: "Maple Glazed Carrots", category: enum.MenuCategoryVegetables, pricing: sidePricing(70, 105), allergens: []string{"D", "V"}},
	{name: "Cauliflower and Cheese", category: enum.MenuCategoryVegetables, pricing: sidePricing(70, 105), allergens: []string{"D", "V"}},
	{name: "Roasted Parsnips", category: enum.MenuCategoryVegetables, pricing: sidePricing(70, 105), allergens: []string{"D", "V"}},

	// Sauces
	{name: "Bread Sauce", category: enum.MenuCategorySauces, pricing: saucePricing(40, 55), allergens: []string{"D", "G"}},
	{name: "Turkey Gravy", category: enum.MenuCategorySauces, pricing: saucePricing(45, 60), allergens: []string{"D", "G"}},
	{name: "Red Wine Jus", category: enum.MenuCategorySauces, pricing: saucePricing(55, 70), allergens: []string{"A", "D"}},

	// Desserts
	{name: "Homemade Mince Pie", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("Individual", 10)}, allergens: []string{"D", "E", "G", "N"}},
	{name: "Traditional German Stollen 350g", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("350g", 65)}, allergens: []string{"D", "E", "G", "N"}},
	{name: "Pecan Pie", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("For 8 people", 150)}, allergens: []string{"D", "E", "G", "N"}},
	{name: "Classic Christmas Pudding with Brandy Sauce 450g", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("450g For 6 people", 120)}, allergens: []string{"A", "D", "E", "G"}},
	{name: "Chocolate Praline Rocher Buche 1kg", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("1kg For 6 people", 180)}, allergens: []string{"D", "E", "G", "N"}},
	{name: "Candied Orange and Cranberry Panettone 500g", category: enum.MenuCategoryDesserts, pricing: []menuPrice{price("500g", 80)}, allergens: []string{"D", "E", "G", "N"}},
}

func sidePricing(small, large int64) []menuPrice {
	return []menuPrice{price("For 4 people", small), price("For 8 people", large)}
}

func saucePricing(small, large int64) []menuPrice {
	return []menuPrice{price("Small", small), price("Large", large)}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
