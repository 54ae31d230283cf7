package store

import "market-finder/internal/models"

func demo(name, description, location string, category models.MarketCategory, lat, lng float64) models.Market {
	return models.Market{
		Candidate: models.Candidate{
			Name:        name,
			Description: description,
			Location:    location,
			Category:    category,
			Lat:         lat,
			Lng:         lng,
		},
		IsActive: true,
	}
}

// DemoMarkets returns a fresh copy of the bundled Indonesian market dataset
func DemoMarkets() []models.Market {
	return []models.Market{
		demo("Pasar Beringharjo", "Pasar tradisional tertua di Yogyakarta, pusat batik dan jajanan pasar", "Jl. Margo Mulyo, Yogyakarta", models.CategoryTraditional, -7.7956, 110.3695),
		demo("Pasar Tanah Abang", "Pusat grosir tekstil terbesar di Asia Tenggara", "Tanah Abang, Jakarta Pusat", models.CategoryGeneral, -6.1744, 106.8294),
		demo("Pasar Klewer", "Pasar batik dan kain terbesar di Solo", "Jl. Dr. Radjiman, Surakarta", models.CategoryTraditional, -7.5755, 110.8243),
		demo("Pasar Seni Sukawati", "Pasar seni dan kerajinan khas Bali", "Sukawati, Gianyar, Bali", models.CategoryTraditional, -8.5569, 115.2840),
		demo("Pasar Apung Lok Baintan", "Pasar terapung di atas sungai Martapura", "Sungai Tabuk, Banjar, Kalimantan Selatan", models.CategoryTraditional, -3.2840, 114.8405),
		demo("Pasar 16 Ilir", "Pasar tradisional di tepi Sungai Musi", "Jl. Pasar 16 Ilir, Palembang", models.CategoryTraditional, -2.9761, 104.7754),
		demo("Pasar Sentral Makassar", "Pasar utama kota Makassar", "Jl. Sangir, Makassar", models.CategoryGeneral, -5.1477, 119.4327),
		demo("Pasar Bolu", "Pasar tradisional di Banda Aceh", "Banda Aceh, Aceh", models.CategoryTraditional, 5.5483, 95.3238),
		demo("Pasar Raya Padang", "Pusat perbelanjaan tradisional kota Padang", "Jl. Pasar Raya, Padang", models.CategoryGeneral, -0.9471, 100.4172),
		demo("Pasar Minggu", "Pasar buah dan sayur di Jakarta Selatan", "Pasar Minggu, Jakarta Selatan", models.CategoryTraditional, -6.2854, 106.8415),
		demo("Pasar Simpang Limun", "Pasar tradisional di Medan", "Jl. Sisingamangaraja, Medan", models.CategoryTraditional, 3.5952, 98.6722),
		demo("Pasar Badung", "Pasar tradisional terbesar di Denpasar", "Jl. Gajah Mada, Denpasar", models.CategoryTraditional, -8.65, 115.2167),
		demo("Pasar Flamboyan", "Pasar sayur dan ikan di Pontianak", "Jl. Gajah Mada, Pontianak", models.CategoryTraditional, -0.0263, 109.3425),
		demo("Pasar Sentral Ambon", "Pasar utama di Ambon", "Jl. Pantai Mardika, Ambon", models.CategoryGeneral, -3.6954, 128.1814),
		demo("Pasar Inpres Manokwari", "Pasar tradisional di Papua Barat", "Manokwari, Papua Barat", models.CategoryTraditional, -0.8614, 134.0640),
		demo("Pasar Cihapit", "Pasar tradisional legendaris di Bandung", "Jl. Cihapit, Bandung", models.CategoryTraditional, -6.9034, 107.6181),
		demo("Pasar Wage", "Pasar tradisional di Purwokerto", "Purwokerto, Banyumas", models.CategoryTraditional, -7.4217, 109.2340),
		demo("Pasar Lama Tangerang", "Pasar kuliner malam di Tangerang", "Jl. Kisamaun, Tangerang", models.CategoryGeneral, -6.1701, 106.6420),
		demo("Pasar Panorama Lembang", "Pasar sayur dan buah segar di dataran tinggi", "Lembang, Bandung Barat", models.CategoryModern, -6.8109, 107.6186),
		demo("Pasar Terapung Banjarmasin", "Pasar terapung di Sungai Barito", "Banjarmasin, Kalimantan Selatan", models.CategoryTraditional, -3.3194, 114.5906),
	}
}
