package graphql

import "github.com/tendant/simple-storefront/pkg/storefront"

const imageFields = `
    id
    url
    altText
    width
    height`

const FeaturedCollectionQuery = `#graphql
  fragment FeaturedCollection on Collection {
    id
    title
    image {` + imageFields + `
    }
    handle
  }
  query FeaturedCollection($country: CountryCode, $language: LanguageCode)
    @inContext(country: $country, language: $language) {
    collections(first: 1, sortKey: UPDATED_AT, reverse: true) {
      nodes {
        ...FeaturedCollection
      }
    }
  }
`

const RecommendedProductsQuery = `#graphql
  fragment RecommendedProduct on Product {
    id
    title
    handle
    priceRange {
      minVariantPrice {
        amount
        currencyCode
      }
    }
    featuredImage {` + imageFields + `
    }
  }
  query RecommendedProducts($country: CountryCode, $language: LanguageCode)
    @inContext(country: $country, language: $language) {
    products(first: 4, sortKey: UPDATED_AT, reverse: true) {
      nodes {
        ...RecommendedProduct
      }
    }
  }
`

const menuFragment = `
  fragment MenuItem on MenuItem {
    id
    resourceId
    tags
    title
    type
    url
  }
  fragment ChildMenuItem on MenuItem {
    ...MenuItem
  }
  fragment ParentMenuItem on MenuItem {
    ...MenuItem
    items {
      ...ChildMenuItem
    }
  }
  fragment Menu on Menu {
    id
    items {
      ...ParentMenuItem
    }
  }
`

const HeaderQuery = `#graphql
  fragment Shop on Shop {
    id
    name
    description
    primaryDomain {
      url
    }
  }
  query Header(
    $country: CountryCode
    $headerMenuHandle: String!
    $language: LanguageCode
  ) @inContext(language: $language, country: $country) {
    shop {
      ...Shop
    }
    menu(handle: $headerMenuHandle) {
      ...Menu
    }
  }
` + menuFragment

const FooterQuery = `#graphql
  query Footer(
    $country: CountryCode
    $footerMenuHandle: String!
    $language: LanguageCode
  ) @inContext(language: $language, country: $country) {
    menu(handle: $footerMenuHandle) {
      ...Menu
    }
  }
` + menuFragment

const cartFragment = `
  fragment CartFields on Cart {
    id
    checkoutUrl
    totalQuantity
    updatedAt
    cost {
      subtotalAmount {
        amount
        currencyCode
      }
    }
    lines(first: 100) {
      nodes {
        id
        quantity
        merchandise {
          ... on ProductVariant {
            id
            title
            image {` + imageFields + `
            }
            price {
              amount
              currencyCode
            }
            product {
              title
              handle
            }
          }
        }
      }
    }
  }
`

const CartQuery = `#graphql
  query Cart($cartId: ID!, $country: CountryCode, $language: LanguageCode)
    @inContext(country: $country, language: $language) {
    cart(id: $cartId) {
      ...CartFields
    }
  }
` + cartFragment

const userErrorFields = `
    userErrors {
      field
      message
      code
    }`

const CartCreateMutation = `#graphql
  mutation CartCreate($input: CartInput!) {
    cartCreate(input: $input) {
      cart {
        ...CartFields
      }` + userErrorFields + `
    }
  }
` + cartFragment

const CartLinesAddMutation = `#graphql
  mutation CartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
    cartLinesAdd(cartId: $cartId, lines: $lines) {
      cart {
        ...CartFields
      }` + userErrorFields + `
    }
  }
` + cartFragment

const CartLinesUpdateMutation = `#graphql
  mutation CartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
    cartLinesUpdate(cartId: $cartId, lines: $lines) {
      cart {
        ...CartFields
      }` + userErrorFields + `
    }
  }
` + cartFragment

const CartLinesRemoveMutation = `#graphql
  mutation CartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
    cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
      cart {
        ...CartFields
      }` + userErrorFields + `
    }
  }
` + cartFragment

// DefaultDocuments maps the storefront query names to their GraphQL documents.
func DefaultDocuments() map[string]string {
	return map[string]string{
		storefront.QueryFeaturedCollection:  FeaturedCollectionQuery,
		storefront.QueryRecommendedProducts: RecommendedProductsQuery,
		storefront.QueryHeader:              HeaderQuery,
		storefront.QueryFooter:              FooterQuery,
		storefront.QueryCart:                CartQuery,
	}
}
