package spec

import (
	"encoding/json"
	"math"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mock", func() {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	Context("With data rows", func() {
		It("Walks the rows in order and wraps", func() {
			rows := []Row{{"id": "1"}, {"id": "2"}, {"id": "3"}}
			m := NewMock(Record{Method: "GET", Path: "/users"}, rows)

			var seen []string
			for i := 0; i < len(rows); i++ {
				seen = append(seen, m.Hit(now)["id"])
			}

			Expect(seen).To(Equal([]string{"1", "2", "3"}))
			Expect(m.Stats().Cursor).To(Equal(0))
			Expect(m.Hit(now)["id"]).To(Equal("1"))
		})

		It("Lets row fields win on collision", func() {
			m := NewMock(Record{
				Method:       "GET",
				Path:         "/users",
				ResponseBody: map[string]interface{}{"source": "static", "id": 0},
			}, []Row{{"id": "7"}})

			body := m.Compose(m.Hit(now))

			Expect(body).To(Equal(map[string]interface{}{"source": "static", "id": "7"}))
			Expect(m.ResponseBody["id"]).To(Equal(0))
		})
	})

	Context("Without data rows", func() {
		It("Still counts hits", func() {
			m := NewMock(Record{Method: "GET", Path: "/empty"}, nil)

			Expect(m.Hit(now)).To(BeNil())
			Expect(m.Hit(now)).To(BeNil())

			s := m.Stats()
			Expect(s.Hits).To(Equal(int64(2)))
			Expect(s.Cursor).To(Equal(0))
			Expect(*s.LastHit).To(Equal(now))
		})
	})

	It("Defaults the status code", func() {
		Expect(NewMock(Record{Method: "GET", Path: "/"}, nil).Status()).To(Equal(200))
		Expect(NewMock(Record{Method: "GET", Path: "/", StatusCode: 418}, nil).Status()).To(Equal(418))
	})

	It("Lists with counters and a null last hit", func() {
		m := NewMock(Record{Method: "GET", Path: "/v"}, []Row{{"a": "b"}})

		raw, err := json.Marshal(m.View())
		Expect(err).ShouldNot(HaveOccurred())

		var listed map[string]interface{}
		Expect(json.Unmarshal(raw, &listed)).To(Succeed())
		Expect(listed).To(HaveKeyWithValue("key", "GET:/v"))
		Expect(listed).To(HaveKeyWithValue("rows", BeNumerically("==", 1)))
		Expect(listed).To(HaveKeyWithValue("hits", BeNumerically("==", 0)))
		Expect(listed).To(HaveKeyWithValue("lastHit", BeNil()))
	})
})

var _ = Describe("Record", func() {
	It("Normalizes the method but not the path", func() {
		rec := Record{Method: " get ", Path: "/Users/"}.Normalize()

		Expect(rec.Method).To(Equal("GET"))
		Expect(rec.Path).To(Equal("/Users/"))
		Expect(rec.Validate()).To(Succeed())
	})

	It("Requires method and path", func() {
		err := Record{}.Normalize().Validate()

		Expect(err).To(HaveOccurred())
		ve, ok := err.(*ValidationError)
		Expect(ok).To(BeTrue())
		Expect(ve.Problems).To(ContainElement("Method is required"))
		Expect(ve.Problems).To(ContainElement("Path is required"))
	})

	It("Rejects paths without a leading slash", func() {
		Expect(Record{Method: "GET", Path: "users"}.Validate()).To(HaveOccurred())
	})

	It("Rejects negative delays", func() {
		Expect(Record{Method: "GET", Path: "/", AvgDelay: -1}.Validate()).To(HaveOccurred())
		Expect(Record{Method: "GET", Path: "/", Deviation: -1}.Validate()).To(HaveOccurred())
	})

	It("Rejects infinite and NaN delays", func() {
		rec, err := UnmarshalYAMLRecord([]byte("method: GET\npath: /inf\navgDelay: .inf\n"))
		Expect(err).ShouldNot(HaveOccurred())

		err = rec.Normalize().Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.(*ValidationError).Problems).To(ContainElement("AvgDelay must be a finite number"))

		Expect(Record{Method: "GET", Path: "/", Deviation: math.NaN()}.Validate()).To(HaveOccurred())
	})

	It("Rejects unknown methods", func() {
		Expect(Record{Method: "FETCH", Path: "/"}.Validate()).To(HaveOccurred())
	})

	It("Decodes nested YAML bodies into JSON friendly maps", func() {
		rec, err := UnmarshalYAMLRecord([]byte(`
method: get
path: /nested
responseBody:
  user:
    name: Picard
  ranks: [captain, admiral]
`))
		Expect(err).ShouldNot(HaveOccurred())

		_, err = json.Marshal(rec.ResponseBody)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.ResponseBody["user"]).To(Equal(map[string]interface{}{"name": "Picard"}))
	})
})
