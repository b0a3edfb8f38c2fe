package tests

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
)

func (s *APITestSuite) TestListProduct() {
	alice := s.register("alice@example.com", "Alice")

	created := s.createListing(alice.Token, upload{"front.png", stripesPNG(0x00000000ffffffff)})
	s.Equal("pending", created.Status)
	s.NotEmpty(created.BlockchainID)
	s.NotEmpty(created.NanoTag.TagID)
	s.False(created.NanoTag.Activated)
	s.Equal("https://secondhand.com/verify/"+created.ProductID, created.NanoTag.VerifyURL)
	qr, err := base64.StdEncoding.DecodeString(created.NanoTag.QRCode)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(string(qr), "\x89PNG"))

	product, err := s.store.Products.GetByID(context.Background(), created.ProductID)
	s.Require().NoError(err)
	s.Equal(alice.UserID, product.SellerID)
}

func (s *APITestSuite) TestListProduct_InvalidPrice() {
	fields := listingFields()
	fields["price"] = "0"

	w, body := s.doMultipart("/api/products/list", fields, nil, "")
	s.Require().Equal(http.StatusBadRequest, w.Code)
	s.False(body.Success)

	var details struct {
		Issues []string `json:"issues"`
	}
	s.decode(body.Error.Details, &details)
	s.Contains(details.Issues, "Invalid price")
}

func (s *APITestSuite) TestListProduct_SimilarImages() {
	first := s.createListing("", upload{"a.png", stripesPNG(0x00000000ffffffff)})

	w, body := s.doMultipart("/api/products/list", listingFields(), []upload{
		{"copy.png", stripesPNG(0x00000000fffffffc)},
	}, "")
	s.Require().Equal(http.StatusBadRequest, w.Code)

	var details struct {
		Reason           string `json:"reason"`
		SimilarProductID string `json:"similar_product_id"`
	}
	s.decode(body.Error.Details, &details)
	s.Equal("Similar images found in existing listings", details.Reason)
	s.Equal(first.ProductID, details.SimilarProductID)
}

func (s *APITestSuite) TestListProduct_RemovedListingKeepsImages() {
	alice := s.register("alice@example.com", "Alice")
	bob := s.register("bob@example.com", "Bob")
	photo := upload{"a.png", stripesPNG(0x00000000ffffffff)}
	created := s.createListing(alice.Token, photo)

	w, _ := s.doJSON(http.MethodDelete, "/api/products/"+created.ProductID, nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)

	w, body := s.doMultipart("/api/products/list", listingFields(), []upload{photo}, bob.Token)
	s.Require().Equal(http.StatusBadRequest, w.Code, w.Body.String())

	var details struct {
		SimilarProductID string `json:"similar_product_id"`
	}
	s.decode(body.Error.Details, &details)
	s.Equal(created.ProductID, details.SimilarProductID)
}

func (s *APITestSuite) TestListProduct_SkipsDisallowedFiles() {
	created := s.createListing("",
		upload{"notes.txt", []byte("hello")},
		upload{"a.png", stripesPNG(0x0f0f0f0f0f0f0f0f)},
	)

	product, err := s.store.Products.GetByID(context.Background(), created.ProductID)
	s.Require().NoError(err)
	s.Len(product.Images, 1)
}

func (s *APITestSuite) TestActivateProduct() {
	alice := s.register("alice@example.com", "Alice")
	bob := s.register("bob@example.com", "Bob")
	created := s.createListing(alice.Token)

	w, _ := s.doJSON(http.MethodPost, "/api/products/activate/"+created.ProductID, nil, bob.Token)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/products/activate/"+created.ProductID, nil, "")
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/products/activate/PRD_NOPE", nil, alice.Token)
	s.Equal(http.StatusNotFound, w.Code)

	w, body := s.doJSON(http.MethodPost, "/api/products/activate/"+created.ProductID, nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var out struct {
		Status string `json:"status"`
	}
	s.decode(body.Data, &out)
	s.Equal("active", out.Status)

	// Again: still fine.
	w, _ = s.doJSON(http.MethodPost, "/api/products/activate/"+created.ProductID, nil, alice.Token)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestActivateAnonymousListing() {
	created := s.createListing("")

	w, _ := s.doJSON(http.MethodPost, "/api/products/activate/"+created.ProductID, nil, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestTransferProduct() {
	alice := s.register("alice@example.com", "Alice")
	bob := s.register("bob@example.com", "Bob")
	created := s.createListing(alice.Token)

	w, _ := s.doJSON(http.MethodPost, "/api/products/transfer/"+created.ProductID, nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, body := s.doJSON(http.MethodPost, "/api/products/transfer/"+created.ProductID, nil, bob.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var first struct {
		BlockchainID string `json:"blockchain_id"`
		Status       string `json:"status"`
	}
	s.decode(body.Data, &first)
	s.NotEmpty(first.BlockchainID)
	s.Equal("sold", first.Status)

	// Already sold: goes through again and appends another block.
	w, body = s.doJSON(http.MethodPost, "/api/products/transfer/"+created.ProductID, nil, bob.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var second struct {
		BlockchainID string `json:"blockchain_id"`
	}
	s.decode(body.Data, &second)
	s.NotEqual(first.BlockchainID, second.BlockchainID)

	w, body = s.doJSON(http.MethodGet, "/api/products/history/"+created.ProductID, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var history struct {
		Entries []struct {
			BlockID string                 `json:"block_id"`
			Data    map[string]interface{} `json:"data"`
		} `json:"entries"`
	}
	s.decode(body.Data, &history)
	s.Require().Len(history.Entries, 3)
	s.Equal("created", history.Entries[0].Data["action"])
	s.Equal("transferred", history.Entries[2].Data["action"])
	s.Equal(bob.UserID, history.Entries[2].Data["to_user"])

	w, body = s.doJSON(http.MethodGet, "/api/user/profile", nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var profile struct {
		SalesCount    int `json:"sales_count"`
		ListingsCount int `json:"listings_count"`
	}
	s.decode(body.Data, &profile)
	s.Equal(2, profile.SalesCount)
	s.Equal(1, profile.ListingsCount)
}

func (s *APITestSuite) TestProductDetail() {
	alice := s.register("alice@example.com", "Alice")
	created := s.createListing(alice.Token, upload{"a.png", stripesPNG(0x3333333333333333)})

	var detail struct {
		Product struct {
			Views      int      `json:"views"`
			SellerName string   `json:"seller_name"`
			Images     []string `json:"images"`
		} `json:"product"`
		BlockchainVerified bool `json:"blockchain_verified"`
		BlockchainRecord   struct {
			BlockID string `json:"block_id"`
		} `json:"blockchain_record"`
	}

	for want := 1; want <= 2; want++ {
		w, body := s.doJSON(http.MethodGet, "/api/products/"+created.ProductID, nil, "")
		s.Require().Equal(http.StatusOK, w.Code)
		s.decode(body.Data, &detail)
		s.Equal(want, detail.Product.Views)
	}
	s.True(detail.BlockchainVerified)
	s.Equal(created.BlockchainID, detail.BlockchainRecord.BlockID)
	s.Equal("Alice", detail.Product.SellerName)
	s.Require().Len(detail.Product.Images, 1)

	// The image URL is servable.
	path := strings.TrimPrefix(detail.Product.Images[0], "http://localhost:5000")
	img := httptest.NewRecorder()
	s.router.ServeHTTP(img, newRequest(http.MethodGet, path))
	s.Equal(http.StatusOK, img.Code)
	s.Equal(stripesPNG(0x3333333333333333), img.Body.Bytes())

	w, _ := s.doJSON(http.MethodGet, "/api/products/PRD_NOPE", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestVerifyProduct() {
	alice := s.register("alice@example.com", "Alice")
	created := s.createListing(alice.Token)
	anonymous := s.createListing("")

	w, body := s.doJSON(http.MethodGet, "/api/products/verify/"+created.ProductID, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var out struct {
		Verified bool `json:"verified"`
		Product  struct {
			Title string  `json:"title"`
			Price float64 `json:"price"`
		} `json:"product"`
		Seller struct {
			Name            string `json:"name"`
			ReputationScore int    `json:"reputation_score"`
		} `json:"seller"`
		BlockchainVerified bool `json:"blockchain_verified"`
		NanoTagActivated   bool `json:"nano_tag_activated"`
	}
	s.decode(body.Data, &out)
	s.True(out.Verified)
	s.Equal("Vintage camera", out.Product.Title)
	s.Equal(50.0, out.Product.Price)
	s.Equal("Alice", out.Seller.Name)
	s.Equal(100, out.Seller.ReputationScore)
	s.True(out.BlockchainVerified)
	s.False(out.NanoTagActivated)

	w, body = s.doJSON(http.MethodGet, "/api/products/verify/"+anonymous.ProductID, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(body.Data, &out)
	s.Equal("Anonymous", out.Seller.Name)
}

func (s *APITestSuite) TestFeed() {
	alice := s.register("alice@example.com", "Alice")
	older := s.createListing(alice.Token)

	fields := listingFields()
	fields["title"] = "Oak dining table"
	fields["category"] = "Furniture"
	fields["description"] = "Solid oak table that seats six people."
	w, body := s.doMultipart("/api/products/list", fields, nil, alice.Token)
	s.Require().Equal(http.StatusCreated, w.Code)
	var newer listing
	s.decode(body.Data, &newer)

	removed := s.createListing(alice.Token)
	w, _ = s.doJSON(http.MethodDelete, "/api/products/"+removed.ProductID, nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)

	w, body = s.doJSON(http.MethodGet, "/api/products/feed", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("2", w.Header().Get("X-Total-Count"))
	var feed []map[string]interface{}
	s.decode(body.Data, &feed)
	s.Require().Len(feed, 2)
	s.Equal(newer.ProductID, feed[0]["product_id"])
	s.Equal(older.ProductID, feed[1]["product_id"])
	s.Equal("Alice", feed[0]["seller_name"])
	s.NotContains(feed[0], "image_hashes")
	s.NotContains(feed[0], "blockchain_id")

	w, body = s.doJSON(http.MethodGet, "/api/products/feed?category=Furniture", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(body.Data, &feed)
	s.Require().Len(feed, 1)
	s.Equal(newer.ProductID, feed[0]["product_id"])

	w, body = s.doJSON(http.MethodGet, "/api/products/feed?q=camera", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(body.Data, &feed)
	s.Require().Len(feed, 1)
	s.Equal(older.ProductID, feed[0]["product_id"])
}

func (s *APITestSuite) TestDeleteProduct() {
	alice := s.register("alice@example.com", "Alice")
	bob := s.register("bob@example.com", "Bob")
	created := s.createListing(alice.Token)

	w, _ := s.doJSON(http.MethodDelete, "/api/products/"+created.ProductID, nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(http.MethodDelete, "/api/products/"+created.ProductID, nil, bob.Token)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.doJSON(http.MethodDelete, "/api/products/"+created.ProductID, nil, alice.Token)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/products/transfer/"+created.ProductID, nil, bob.Token)
	s.Equal(http.StatusBadRequest, w.Code)

	w, body := s.doJSON(http.MethodGet, "/api/user/listings", nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var listings []map[string]interface{}
	s.decode(body.Data, &listings)
	s.Require().Len(listings, 1)
	s.Equal("removed", listings[0]["status"])
}

func (s *APITestSuite) TestValidateLedger() {
	alice := s.register("alice@example.com", "Alice")
	s.createListing(alice.Token)
	s.createListing("")

	w, body := s.doJSON(http.MethodGet, "/api/blockchain/validate", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var out struct {
		Report struct {
			OK    bool `json:"ok"`
			Total int  `json:"total"`
		} `json:"report"`
	}
	s.decode(body.Data, &out)
	s.True(out.Report.OK)
	s.Equal(2, out.Report.Total)
}

func (s *APITestSuite) TestRouteNotFound() {
	w, body := s.doJSON(http.MethodGet, "/api/nothing-here", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.False(body.Success)
	s.Equal("NOT_FOUND", body.Error.Code)
}
