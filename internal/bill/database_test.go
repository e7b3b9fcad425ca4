package bill

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/billscan/internal/extract"
	"github.com/zombor/billscan/internal/pipeline"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newRecord := func(id string, created time.Time) *Record {
		total := "80.00"
		return &Record{
			ID:               id,
			OriginalFilename: "bill.jpg",
			Filename:         id + "_bill.jpg",
			ContentType:      "image/jpeg",
			Pages:            1,
			Bill: pipeline.CategorizedBill{
				ParsedBill: extract.ParsedBill{
					Total: &total,
					Items: []extract.ItemLine{{Description: "rice", Quantity: "5", Price: "50.00"}},
				},
				PredictedCategory: "grocery",
			},
			Text:      "rice 5 50.00\nTotal: 80.00",
			CreatedAt: created,
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveBill", func() {
		var (
			record *Record
			err    error
		)

		BeforeEach(func() {
			record = newRecord("test-id", time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC))
		})

		JustBeforeEach(func() {
			err = db.SaveBill(record)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should round-trip the record including its text", func() {
				got, getErr := db.GetBill("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(got.Bill).To(Equal(record.Bill))
				Expect(got.Text).To(Equal(record.Text))
				Expect(got.CreatedAt.Equal(record.CreatedAt)).To(BeTrue())
				Expect(got.Bill.Date).To(BeNil())
			})
		})

		When("the record has no ID", func() {
			BeforeEach(func() {
				record.ID = ""
			})

			It("should return an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("GetBill", func() {
		When("the bill does not exist", func() {
			It("should return ErrNotFound", func() {
				_, err := db.GetBill("missing")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListBills", func() {
		When("the database is empty", func() {
			It("should return an empty slice", func() {
				records, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).NotTo(BeNil())
				Expect(records).To(BeEmpty())
			})
		})

		When("several bills exist", func() {
			BeforeEach(func() {
				base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
				Expect(db.SaveBill(newRecord("a", base))).To(Succeed())
				Expect(db.SaveBill(newRecord("b", base.Add(2*time.Hour)))).To(Succeed())
				Expect(db.SaveBill(newRecord("c", base.Add(time.Hour)))).To(Succeed())
			})

			It("should return them newest first", func() {
				records, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				ids := []string{}
				for _, r := range records {
					ids = append(ids, r.ID)
				}
				Expect(ids).To(Equal([]string{"b", "c", "a"}))
			})
		})
	})

	Describe("DeleteBill", func() {
		BeforeEach(func() {
			Expect(db.SaveBill(newRecord("test-id", time.Now()))).To(Succeed())
		})

		It("should remove the bill", func() {
			Expect(db.DeleteBill("test-id")).To(Succeed())
			_, err := db.GetBill("test-id")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should return ErrNotFound for a missing bill", func() {
			Expect(errors.Is(db.DeleteBill("missing"), ErrNotFound)).To(BeTrue())
		})
	})

	Describe("persistence", func() {
		It("should keep bills across reopen", func() {
			Expect(db.SaveBill(newRecord("kept", time.Now()))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			got, err := db.GetBill("kept")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Bill.PredictedCategory).To(Equal("grocery"))
		})
	})
})
