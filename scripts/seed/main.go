// Command seed loads a small demo dataset into the configured store:
// protocols, stock items, one patient's treatments and a consultation with a
// prescription. Safe to re-run against an empty store only.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/app"
	"github.com/vetoapp23/vetoapp/internal/clinic"
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
	"github.com/vetoapp23/vetoapp/internal/treatment"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	protocolSvc, err := protocol.NewService(ctx, store, logger)
	if err != nil {
		log.Fatalf("init protocols: %v", err)
	}
	stockSvc, err := stock.NewService(ctx, store, logger)
	if err != nil {
		log.Fatalf("init stock: %v", err)
	}
	treatmentSvc, err := treatment.NewService(ctx, store, logger, protocolSvc, stockSvc)
	if err != nil {
		log.Fatalf("init treatments: %v", err)
	}
	clinicSvc, err := clinic.NewService(ctx, store, logger, stockSvc)
	if err != nil {
		log.Fatalf("init clinic: %v", err)
	}

	fmt.Println("→ Seeding protocols...")
	dhpp, err := protocolSvc.Create(ctx, protocol.CreateInput{
		Name:        "DHPP",
		Species:     "Chien",
		ProductType: protocol.ProductVaccination,
		Intervals: []protocol.Interval{
			{OffsetDays: 0, Label: "J0"},
			{OffsetDays: 21, Label: "Rappel"},
			{OffsetDays: 365, Label: "1 an"},
		},
	})
	if err != nil {
		log.Fatalf("seed protocol DHPP: %v", err)
	}
	if _, err := protocolSvc.Create(ctx, protocol.CreateInput{
		Name:        "Milbemax",
		Species:     "Chien",
		ProductType: protocol.ProductAntiparasitic,
		Intervals: []protocol.Interval{
			{OffsetDays: 0, Label: "J0"},
			{OffsetDays: 90, Label: "3 mois"},
		},
	}); err != nil {
		log.Fatalf("seed protocol Milbemax: %v", err)
	}

	fmt.Println("→ Seeding stock...")
	for _, input := range []stock.AddItemInput{
		{Name: "DHPP", Category: stock.CategoryVaccine, CurrentStock: 12, MinimumStock: 3, PurchasePrice: 8, SellingPrice: 45},
		{Name: "Milbemax", Category: stock.CategoryMedication, CurrentStock: 30, MinimumStock: 5, PurchasePrice: 2, SellingPrice: 9},
		{Name: "Amoxival", Category: stock.CategoryMedication, CurrentStock: 40, MinimumStock: 10, PurchasePrice: 0.5, SellingPrice: 2},
		{Name: "Seringue 2ml", Category: stock.CategoryConsumable, CurrentStock: 100, MinimumStock: 20, PurchasePrice: 0.2, SellingPrice: 0},
	} {
		if _, err := stockSvc.AddItem(ctx, input); err != nil {
			log.Fatalf("seed stock %s: %v", input.Name, err)
		}
	}

	fmt.Println("→ Seeding treatments...")
	patientID := uuid.New()
	ownerID := uuid.New()
	if _, err := treatmentSvc.Add(ctx, treatment.AddInput{
		Kind:        treatment.KindVaccination,
		PatientID:   patientID,
		OwnerID:     ownerID,
		Species:     "Chien",
		DateGiven:   time.Now().UTC().AddDate(0, 0, -30),
		ProtocolIDs: []uuid.UUID{dhpp.ID},
		Cost:        45,
		PerformedBy: "dr.martin",
	}); err != nil {
		log.Fatalf("seed treatment: %v", err)
	}

	fmt.Println("→ Seeding clinic...")
	consultation, err := clinicSvc.AddConsultation(ctx, clinic.ConsultationInput{
		PatientID: patientID,
		OwnerID:   ownerID,
		Date:      time.Now().UTC().AddDate(0, 0, -7),
		Reason:    "Boiterie",
		Diagnosis: "Entorse",
		Cost:      50,
	})
	if err != nil {
		log.Fatalf("seed consultation: %v", err)
	}
	if _, err := clinicSvc.AddPrescription(ctx, clinic.PrescriptionInput{
		PatientID:      patientID,
		OwnerID:        ownerID,
		ConsultationID: &consultation.ID,
		Date:           consultation.Date,
		Medications: []clinic.MedicationInput{
			{Name: "Amoxival", Quantity: 10, Cost: 2, Instructions: "1 comprimé matin et soir"},
		},
	}); err != nil {
		log.Fatalf("seed prescription: %v", err)
	}

	fmt.Println("Done.")
}
