package htstable

import (
	"github.com/tariffshield/harrier/internal/domain"
)

// SampleTable returns the built-in reference table used when no CSV is
// configured. It covers the consumer categories the classifier emits;
// production deployments load the full published table instead.
func SampleTable() *Table {
	entries := []*domain.TariffCode{
		{Code: "8528.72.64", Description: "Flat panel televisions, color, LCD", RawRateString: "Free"},
		{Code: "8471.30.01", Description: "Portable automatic data processing machines, weight <= 10 kg", RawRateString: "Free"},
		{Code: "8517.13.00", Description: "Smartphones", RawRateString: "Free"},
		{Code: "8518.30.20", Description: "Headphones and earphones", RawRateString: "4.9%"},
		{Code: "8508.11.00", Description: "Vacuum cleaners, self-contained electric motor", RawRateString: "Free"},
		{Code: "8516.60.40", Description: "Cooking stoves, ranges and ovens", RawRateString: "Free"},
		{Code: "9403.20.00", Description: "Furniture of metal, other", RawRateString: "Free"},
		{Code: "9403.60.80", Description: "Furniture of wood, other", RawRateString: "Free"},
		{Code: "9401.61.40", Description: "Seats with wooden frames, upholstered", RawRateString: "Free"},
		{Code: "6110.20.20", Description: "Sweaters and pullovers of cotton, knitted", RawRateString: "16.5%"},
		{Code: "6203.42.40", Description: "Men's trousers of cotton, not knitted", RawRateString: "16.6%"},
		{Code: "6302.31.90", Description: "Bed linen of cotton, other", RawRateString: "6.7%"},
		{Code: "6404.11.90", Description: "Sports footwear with textile uppers", RawRateString: "20%"},
		{Code: "8708.29.50", Description: "Parts and accessories of motor vehicle bodies", RawRateString: "2.5%"},
		{Code: "8703.23.01", Description: "Passenger vehicles, spark-ignition, 1500-3000 cc", RawRateString: "2.5%"},
		{Code: "7210.49.00", Description: "Flat-rolled iron or steel, zinc coated", RawRateString: "Free"},
		{Code: "7326.90.86", Description: "Articles of iron or steel, other", RawRateString: "2.9%"},
		{Code: "7615.10.71", Description: "Cooking and kitchen ware of aluminum", RawRateString: "3.1%", SpecialRateString: "Free (AU,BH,CL,CO,IL,JO,KR,MA,OM,PA,PE,SG)"},
		{Code: "9503.00.00", Description: "Toys, tricycles, scooters and similar", RawRateString: "Free"},
		{Code: "9504.50.00", Description: "Video game consoles and machines", RawRateString: "Free"},
	}
	for _, e := range entries {
		e.MFNBaseRate = ParseRate(e.RawRateString)
	}
	return New("builtin-sample", entries)
}
