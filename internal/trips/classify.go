package trips

import (
	"github.com/loglive/telemetry-backend-go/internal/models"
)

// Classify derives the billing category of a leg from its endpoint POI
// types. Rules, in order:
//
//  1. arriving at an Oficina or Concessionaria is a maintenance run,
//     whatever the origin;
//  2. a Base<->Granja leg in either direction is a productive run;
//  3. a leg between two different Granjas is a support run;
//  4. everything else, including an unknown endpoint, is Indefinida.
func Classify(origin, dest *models.POI) models.TripCategory {
	if dest == nil {
		return models.CategoryIndefinida
	}
	if dest.Type == models.POITypeOficina || dest.Type == models.POITypeConcessionaria {
		return models.CategoryManutencao
	}
	if origin == nil {
		return models.CategoryIndefinida
	}

	switch {
	case origin.Type == models.POITypeBase && dest.Type == models.POITypeGranja,
		origin.Type == models.POITypeGranja && dest.Type == models.POITypeBase:
		return models.CategoryProdutiva
	case origin.Type == models.POITypeGranja && dest.Type == models.POITypeGranja && origin.ID != dest.ID:
		return models.CategoryApoio
	}

	return models.CategoryIndefinida
}
