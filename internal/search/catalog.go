package search

import (
	"github.com/tariffshield/harrier/internal/domain"
)

// builtinCatalog is a small cross-origin product set covering the
// categories the classifier emits. Prices are list prices; tariff
// fields are filled later by the alternatives enricher.
var builtinCatalog = []domain.CandidateProduct{
	{Title: "55 inch 4K Smart TV (Made in Mexico)", Price: 448, Source: "BestValue", Country: "MX"},
	{Title: "55 inch QLED Smart TV", Price: 529, Source: "TechMart", Country: "CN"},
	{Title: "50 inch LED TV (Made in Vietnam)", Price: 379, Source: "HomeTech", Country: "VN"},
	{Title: "Gaming Laptop 15.6 inch RTX", Price: 999, Source: "TechMart", Country: "CN"},
	{Title: "Ultrabook Laptop 14 inch (Made in Taiwan)", Price: 899, Source: "CompuDeal", Country: "TW"},
	{Title: "Business Laptop 13 inch (Made in Vietnam)", Price: 749, Source: "OfficeSupply", Country: "VN"},
	{Title: "Wireless Earbud Pro ANC", Price: 129, Source: "AudioHouse", Country: "CN"},
	{Title: "Wireless Earbud Sport (Made in Vietnam)", Price: 89, Source: "AudioHouse", Country: "VN"},
	{Title: "3-Seat Fabric Sofa", Price: 649, Source: "FurniShop", Country: "CN"},
	{Title: "3-Seat Fabric Sofa (Made in Mexico)", Price: 699, Source: "CasaMueble", Country: "MX"},
	{Title: "2-Seat Loveseat Sofa (Made in Vietnam)", Price: 499, Source: "FurniShop", Country: "VN"},
	{Title: "Standing Desk 48 inch", Price: 289, Source: "OfficeSupply", Country: "CN"},
	{Title: "Standing Desk 48 inch (American made)", Price: 389, Source: "USDesk", Country: "US"},
	{Title: "Cotton Pullover Sweater", Price: 39, Source: "StyleHub", Country: "CN"},
	{Title: "Cotton Pullover Sweater (Made in Bangladesh)", Price: 29, Source: "StyleHub", Country: "BD"},
	{Title: "Merino Wool Sweater (Made in Peru)", Price: 59, Source: "AndesWear", Country: "PE"},
	{Title: "Slim Fit Jeans", Price: 49, Source: "StyleHub", Country: "CN"},
	{Title: "Slim Fit Jeans (Made in Mexico)", Price: 44, Source: "DenimCo", Country: "MX"},
	{Title: "Front Brake Pads Set", Price: 65, Source: "AutoZoned", Country: "CN"},
	{Title: "Front Brake Pads Set (Made in Mexico)", Price: 58, Source: "AutoZoned", Country: "MX"},
	{Title: "Front Brake Pads Premium (German)", Price: 92, Source: "AutoHaus", Country: "DE"},
	{Title: "Stainless Steel Frying Pan 12 inch", Price: 45, Source: "KitchenPro", Country: "CN"},
	{Title: "Stainless Steel Frying Pan (American made)", Price: 79, Source: "USForge", Country: "US"},
	{Title: "Building Blocks Set 1200 pieces", Price: 35, Source: "ToyBarn", Country: "CN"},
	{Title: "Building Blocks Castle Set (Made in Denmark)", Price: 55, Source: "ToyBarn", Country: "DK"},
	{Title: "Plush Doll Large", Price: 24, Source: "ToyBarn", Country: "CN"},
	{Title: "Plush Doll Large (Made in Indonesia)", Price: 22, Source: "ToyBarn", Country: "ID"},
}
