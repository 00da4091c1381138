package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/milkbites/milkbites-backend/config"
	"github.com/milkbites/milkbites-backend/internal/app/model"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/milkbites/milkbites-backend/pkg/util"
	"gorm.io/gorm"
)

var cookieVariants = []model.Variant{
	{Name: "Kaastengel"},
	{Name: "Putri Salju"},
	{Name: "Dark Choco Cookies"},
	{Name: "Nastar"},
	{Name: "Florentine"},
	{Name: "Nastar Keju"},
}

var babkaVariants = []model.Variant{
	{Name: "Blueberry Cheese"},
	{Name: "Nutella"},
}

func catalog() []model.Product {
	return []model.Product{
		// Hampers use the legacy single-group schema: pick N jars from
		// one flavour list.
		{
			Name:                  "Hampers Personal Cookies",
			Description:           "One jar of Milkbites cookies packaged in a special box with greeting card",
			Price:                 89000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				RequiredCount: 1,
				Variants:      cookieVariants,
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:                  "Hampers Babka",
			Description:           "One your favorite babka packaged in a special box with greeting card",
			Price:                 95000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				RequiredCount: 1,
				Variants:      babkaVariants,
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:                  "Hampers Round Babka",
			Description:           "One your favorite round babka diameter 18cm packaged in a special box with greeting card",
			Price:                 105000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				RequiredCount: 1,
				Variants:      babkaVariants,
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:                  "Hampers Double Cookies",
			Description:           "Two jars of Milkbites cookies packaged in a special box with greeting card",
			Price:                 179000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				RequiredCount: 2,
				Variants:      cookieVariants,
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		// The mixed hampers splits its picks into labelled groups.
		{
			Name:                  "Hampers Babka & Cookies",
			Description:           "One babka and two jars of Milkbites cookies packaged in a special box with greeting card",
			Price:                 269000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				VariantTypes: map[string]model.VariantGroup{
					"babka": {
						Label:         "Babka",
						RequiredCount: 1,
						Variants:      babkaVariants,
					},
					"cookies": {
						Label:         "Cookies",
						RequiredCount: 2,
						Variants:      cookieVariants,
					},
				},
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:                  "Hampers 4 Cookies",
			Description:           "Four jars of Milkbites cookies packaged in a special box with greeting card",
			Price:                 329000,
			Category:              model.CategoryHampers,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				RequiredCount: 4,
				Variants:      cookieVariants,
			},
			StockQuantity: 100,
			IsActive:      true,
		},
		// Cookies
		{
			Name:          "Italian Florentine",
			Description:   "Nutritious caramelized Italian cookies, packed with a rich blend of nuts and seeds. Packaged in a 350ml jar.",
			Price:         79000,
			Category:      model.CategoryCookies,
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:          "New York Dark Choco Chips",
			Description:   "New York style cookies loaded with dark chocolate chips. Packaged in a 350ml jar.",
			Price:         79000,
			Category:      model.CategoryCookies,
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:          "Indonesian Putri Salju",
			Description:   "Classic Indonesian cookies, perfectly balances the rich flavor of cashews with powdered sugar. Packaged in a 350ml jar.",
			Price:         79000,
			Category:      model.CategoryCookies,
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:          "Dutch Kaastengel",
			Description:   "Dutch-style cookies, crafted with premium ingredients and a blend of three kind of cheeses. Packaged in a 350ml jar.",
			Price:         89000,
			Category:      model.CategoryCookies,
			StockQuantity: 100,
			IsActive:      true,
		},
		// Babka
		{
			Name:          "Poland Babka Blueberry Cheese",
			Description:   "Babka bread is a traditional bread from Poland consists of a rich and buttery dough filled with Blueberry and Cream Cheese. Packaged in aluminium cup size 20x10cm.",
			Price:         85000,
			Category:      model.CategoryBabka,
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:          "Poland Babka Cinnamon Sugar",
			Description:   "Babka bread is a traditional bread from Poland consists of a rich and buttery dough filled with Cinnamon Sugar. Packaged in aluminium cup size 20x10cm.",
			Price:         85000,
			Category:      model.CategoryBabka,
			StockQuantity: 100,
			IsActive:      true,
		},
		{
			Name:          "Poland Babka Nutella",
			Description:   "Babka bread is a traditional bread from Poland consists of a rich and buttery dough filled with Nutella and Choco Chips. Packaged in aluminium cup size 20x10cm.",
			Price:         85000,
			Category:      model.CategoryBabka,
			StockQuantity: 100,
			IsActive:      true,
		},
		// Cake, with per-variant upcharges
		{
			Name:                  "Milkbites Bento Cake",
			Description:           "Personal 12cm celebration cake with your choice of base and frosting. Premium frostings carry a small upcharge.",
			Price:                 120000,
			Category:              model.CategoryCake,
			RequiresCustomization: true,
			CustomizationOptions: &model.CustomizationOptions{
				VariantTypes: map[string]model.VariantGroup{
					"base": {
						Label:         "Cake Base",
						RequiredCount: 1,
						Variants: []model.Variant{
							{Name: "Vanilla"},
							{Name: "Chocolate"},
						},
					},
					"frosting": {
						Label:         "Frosting",
						RequiredCount: 1,
						Variants: []model.Variant{
							{Name: "Cream Cheese"},
							{Name: "Dark Chocolate Ganache", AdditionalPrice: 10000},
							{Name: "Pistachio Buttercream", AdditionalPrice: 15000},
						},
					},
				},
			},
			StockQuantity: 100,
			IsActive:      true,
		},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	discountRepo := repository.NewDiscountRepository(db.GetDB())

	products := catalog()
	fmt.Printf("Products to seed: %d\n", len(products))

	fmt.Print("Do you want to proceed with seeding? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Seeding cancelled.")
		return
	}

	if err := seedAdmin(userRepo); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	created, skipped, err := seedProducts(productRepo, products)
	if err != nil {
		log.Fatal("Failed to seed products:", err)
	}
	fmt.Printf("Products created: %d, already present: %d\n", created, skipped)

	if err := seedDiscount(discountRepo); err != nil {
		log.Fatal("Failed to seed discount:", err)
	}

	fmt.Println("Seeding completed successfully!")
}

// seedAdmin creates the back office account unless it already exists.
// Credentials come from ADMIN_WHATSAPP / ADMIN_PASSWORD, with local
// development defaults.
func seedAdmin(userRepo repository.UserRepository) error {
	whatsapp := os.Getenv("ADMIN_WHATSAPP")
	if whatsapp == "" {
		whatsapp = "6281234567890"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	if _, err := userRepo.FindByWhatsApp(whatsapp); err == nil {
		fmt.Println("Admin user already exists, skipping.")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        "admin@milkbites.id",
		WhatsApp:     whatsapp,
		PasswordHash: hash,
		FullName:     "Milkbites Admin",
		Role:         model.RoleAdmin,
	}
	if err := userRepo.Create(admin); err != nil {
		return err
	}

	fmt.Printf("Admin user created: %s\n", whatsapp)
	return nil
}

func seedProducts(productRepo repository.ProductRepository, products []model.Product) (int, int, error) {
	existing, err := productRepo.FindAll()
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Name] = true
	}

	created := 0
	skipped := 0
	for i := range products {
		if seen[products[i].Name] {
			skipped++
			continue
		}
		if err := productRepo.Create(&products[i]); err != nil {
			return created, skipped, err
		}
		fmt.Printf("Added: %s\n", products[i].Name)
		created++
	}

	return created, skipped, nil
}

func seedDiscount(discountRepo repository.DiscountRepository) error {
	code := "EID2025"
	if _, err := discountRepo.FindByCode(code); err == nil {
		fmt.Println("Discount already exists, skipping.")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	discount := &model.Discount{
		Code:        code,
		Description: "Eid holiday promotion",
		Type:        model.DiscountPercentage,
		Value:       5,
		MinPurchase: 1000000,
		IsActive:    true,
	}
	if err := discountRepo.Create(discount); err != nil {
		return err
	}

	fmt.Printf("Discount created: %s\n", code)
	return nil
}
