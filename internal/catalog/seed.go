package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCars is the built-in fleet. Image file names resolve against
// baseURL/media/cars/.
func DefaultCars(baseURL string) []Car {
	cars := []Car{
		{ID: "eco_001", Category: CategoryEconomy, Name: "Toyota Vitz", PricePerDay: 2500, Features: []string{"Automatic", "AC", "Fuel Efficient", "4 Seats"}, Available: true, Location: "Nairobi, Dar es Salaam", Image: "subaru.jpg"},
		{ID: "eco_002", Category: CategoryEconomy, Name: "Nissan March", PricePerDay: 2800, Features: []string{"Manual/Auto", "AC", "Bluetooth", "4 Seats"}, Available: true, Location: "Nairobi, Mombasa", Image: "subaru.jpg"},
		{ID: "eco_003", Category: CategoryEconomy, Name: "Suzuki Swift", PricePerDay: 3000, Features: []string{"Automatic", "AC", "Sport Mode", "4 Seats"}, Available: false, Location: "Nairobi", Image: "subaru.jpg"},

		{ID: "suv_001", Category: CategorySUV, Name: "Toyota RAV4", PricePerDay: 4500, Features: []string{"AWD", "Automatic", "AC", "7 Seats", "GPS"}, Available: true, Location: "Nairobi, Dar es Salaam, Mombasa", Image: "rav4.jpg"},
		{ID: "suv_002", Category: CategorySUV, Name: "Honda CR-V", PricePerDay: 5000, Features: []string{"AWD", "Automatic", "Sunroof", "5 Seats", "Premium Sound"}, Available: true, Location: "Nairobi, Kampala", Image: "rav4.jpg"},
		{ID: "suv_003", Category: CategorySUV, Name: "Mazda CX-5", PricePerDay: 5500, Features: []string{"AWD", "Automatic", "Leather", "5 Seats", "Premium Interior"}, Available: true, Location: "Nairobi", Image: "rav4.jpg"},

		{ID: "lux_001", Category: CategoryLuxury, Name: "Mercedes C-Class", PricePerDay: 8000, Features: []string{"Automatic", "Leather", "Premium Sound", "5 Seats", "GPS", "Sunroof"}, Available: true, Location: "Nairobi, Dar es Salaam", Image: "alphard.webp"},
		{ID: "lux_002", Category: CategoryLuxury, Name: "BMW 3 Series", PricePerDay: 9000, Features: []string{"Automatic", "Sport Mode", "Premium Interior", "5 Seats", "iDrive"}, Available: true, Location: "Nairobi", Image: "alphard.webp"},
		{ID: "lux_003", Category: CategoryLuxury, Name: "Audi A4", PricePerDay: 10000, Features: []string{"Quattro AWD", "Automatic", "Virtual Cockpit", "5 Seats", "Premium Plus"}, Available: false, Location: "Nairobi, Kampala", Image: "alphard.webp"},

		{ID: "van_001", Category: CategoryVan, Name: "Toyota Alphard", PricePerDay: 6000, Features: []string{"Manual", "AC", "14 Seats", "Luggage Space"}, Available: true, Location: "Nairobi, Dar es Salaam, Mombasa", Image: "alphard.webp"},
		{ID: "van_002", Category: CategoryVan, Name: "Nissan Caravan", PricePerDay: 7000, Features: []string{"Automatic", "AC", "12 Seats", "Premium Interior"}, Available: true, Location: "Nairobi, Kampala", Image: "alphard.webp"},
	}
	return resolveImages(cars, baseURL)
}

type seedFile struct {
	Cars []Car `yaml:"cars"`
}

// LoadFile reads a YAML fleet definition:
//
//	cars:
//	  - id: eco_001
//	    category: economy
//	    name: Toyota Vitz
//	    price: 2500
//	    features: [Automatic, AC]
//	    available: true
//	    location: Nairobi
//	    image: subaru.jpg
func LoadFile(path, baseURL string) ([]Car, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed file: %w", err)
	}
	return parseSeed(raw, baseURL)
}

func parseSeed(raw []byte, baseURL string) ([]Car, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode seed file: %w", err)
	}
	if len(f.Cars) == 0 {
		return nil, fmt.Errorf("catalog: seed file has no cars")
	}
	for i := range f.Cars {
		f.Cars[i].Category = Category(strings.ToLower(string(f.Cars[i].Category)))
	}
	return resolveImages(f.Cars, baseURL), nil
}

func resolveImages(cars []Car, baseURL string) []Car {
	base := strings.TrimRight(baseURL, "/")
	for i := range cars {
		img := cars[i].Image
		if img == "" || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
			continue
		}
		cars[i].Image = base + "/media/cars/" + strings.TrimLeft(img, "/")
	}
	return cars
}
