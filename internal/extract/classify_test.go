package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ClassifyLine", func() {
	var (
		line   string
		result Classification
	)

	JustBeforeEach(func() {
		result = ClassifyLine(line)
	})

	When("the line is an item", func() {
		BeforeEach(func() {
			line = "  t-shirt 2 499.00  "
		})

		It("should be classified as an item", func() {
			Expect(result.Kind).To(Equal(Item))
		})

		It("should split description, quantity and price", func() {
			Expect(result.Item).To(Equal(ItemLine{Description: "t-shirt", Quantity: "2", Price: "499.00"}))
		})
	})

	When("the description has several words and digits", func() {
		BeforeEach(func() {
			line = "cutting board 2x 1 250.5"
		})

		It("should keep the whole description", func() {
			Expect(result.Item).To(Equal(ItemLine{Description: "cutting board 2x", Quantity: "1", Price: "250.5"}))
		})
	})

	When("fields are separated by non-breaking spaces", func() {
		BeforeEach(func() {
			line = "rice\u00a05 50.00"
		})

		It("should be an item", func() {
			Expect(result.Kind).To(Equal(Item))
			Expect(result.Item).To(Equal(ItemLine{Description: "rice", Quantity: "5", Price: "50.00"}))
		})
	})

	When("the price has no decimals", func() {
		BeforeEach(func() {
			line = "bread 2 40"
		})

		It("should be an item", func() {
			Expect(result.Kind).To(Equal(Item))
			Expect(result.Item.Price).To(Equal("40"))
		})
	})

	When("the line has trailing tokens", func() {
		BeforeEach(func() {
			line = "milk 3 30.00 extra"
		})

		It("should not be an item", func() {
			Expect(result.Kind).To(Equal(Unrecognized))
		})
	})

	When("the price has too many decimals", func() {
		BeforeEach(func() {
			line = "milk 3 30.005"
		})

		It("should not be an item", func() {
			Expect(result.Kind).To(Equal(Unrecognized))
		})
	})

	When("the line has a GST number", func() {
		BeforeEach(func() {
			line = "GST Number: 12AB..."
		})

		It("should be metadata", func() {
			Expect(result.Kind).To(Equal(Metadata))
		})
	})

	When("a keyword hides inside an item-shaped line", func() {
		BeforeEach(func() {
			line = "taxi 1 300.00"
		})

		It("should be metadata, never an item", func() {
			Expect(result.Kind).To(Equal(Metadata))
			Expect(result.Item).To(BeZero())
		})
	})

	When("the line is prose", func() {
		BeforeEach(func() {
			line = "Supplier: FreshMart"
		})

		It("should be unrecognized", func() {
			Expect(result.Kind).To(Equal(Unrecognized))
		})
	})

	When("the line is blank", func() {
		BeforeEach(func() {
			line = "   "
		})

		It("should be unrecognized", func() {
			Expect(result.Kind).To(Equal(Unrecognized))
			Expect(result.Line).To(BeEmpty())
		})
	})
})

var _ = Describe("LineKind", func() {
	It("should name each kind", func() {
		Expect(Item.String()).To(Equal("item"))
		Expect(Metadata.String()).To(Equal("metadata"))
		Expect(Unrecognized.String()).To(Equal("unrecognized"))
	})
})
