// cartctl is a CLI for browsing a Shopify store and managing a cart.
// Each command performs a single operation, making it composable for scripts.
// The cart identity is kept in a state file, so consecutive invocations
// share one cart the way page reloads share one browser cart.
//
// Commands:
//
//	cartctl collections
//	cartctl products [-collection HANDLE] [-page N]
//	cartctl cart
//	cartctl add -variant ID [-product ID] [-design REF] [-attr KEY=VALUE]...
//	cartctl remove -line ID
//	cartctl clear
//	cartctl checkout
//	cartctl track -order NUMBER -email ADDRESS
//
// Examples:
//
//	cartctl products -collection mugs
//	cartctl add -product gid://shopify/Product/1 -variant gid://shopify/ProductVariant/11 -design https://cdn.example/d.png
//	open "$(cartctl checkout -q)"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/app"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/orderstatus"
	"storefront/internal/storage"
)

// Global flags (apply to all commands)
var (
	stateFile string
	quiet     bool
	noColor   bool
	verbose   bool
	asJSON    bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "collections":
		runCollections(args)
	case "products":
		runProducts(args)
	case "cart":
		runCart(args)
	case "add":
		runAdd(args)
	case "remove":
		runRemove(args)
	case "clear":
		runClear(args)
	case "checkout":
		runCheckout(args)
	case "track":
		runTrack(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartctl - storefront catalog and cart tool

Usage:
  cartctl <command> [options]

Commands:
  collections  List collections
  products     List a page of products
  cart         Show the cart
  add          Add one unit of a variant
  remove       Remove a cart line
  clear        Empty the cart and start a fresh one
  checkout     Print the hosted checkout URL
  track        Print the order status page URL

Configuration is read from CONFIG_FILE or SHOP_DOMAIN / STOREFRONT_TOKEN.

Run 'cartctl <command> -h' for command-specific options.
`)
}

// newFlagSet registers the global flags on a command's flag set.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&stateFile, "state", "", "Cart state file (default: STATE_FILE or the user config dir)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only print the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - log gateway activity to stderr")
	fs.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

// =============================================================================
// SETUP
// =============================================================================

// openApp loads configuration and assembles the storefront over the state file.
func openApp() (*app.App, context.Context, context.CancelFunc) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	cfg, err := config.Load(ctx)
	if err != nil {
		cancel()
		fatal("Loading config: %v", err)
	}

	path, err := resolveStateFile(stateFile, cfg.StateFile)
	if err != nil {
		cancel()
		fatal("Locating state file: %v", err)
	}
	cfg.StateFile = path

	store := storage.NewFileStore(path)
	a, err := app.New(cfg, store, logger)
	if err != nil {
		cancel()
		fatal("Creating storefront: %v", err)
	}
	printInfo("State file %s", store.Path())
	return a, ctx, cancel
}

// resolveStateFile picks the flag, then the configured path, then
// <user config dir>/storefront/cart.state.
func resolveStateFile(flagValue, configured string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if configured != "" {
		return configured, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "storefront", "cart.state"), nil
}

// openCart assembles the storefront and restores the persisted cart.
func openCart() (*app.App, context.Context, context.CancelFunc) {
	a, ctx, cancel := openApp()
	a.Restore(ctx)
	return a, ctx, cancel
}

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func runCollections(args []string) {
	fs := newFlagSet("collections", "[options]")
	parseFlags(fs, args)

	a, ctx, cancel := openApp()
	defer cancel()

	collections, err := a.Catalog.ListCollections(ctx)
	if err != nil {
		fatal("Listing collections: %v", err)
	}
	if asJSON {
		printJSON(collections)
		return
	}
	for _, c := range collections {
		if quiet {
			fmt.Println(c.Handle)
			continue
		}
		fmt.Printf("%s%-24s%s %s\n", colorCyan, c.Handle, colorReset, c.Title)
	}
}

func runProducts(args []string) {
	fs := newFlagSet("products", "[-collection HANDLE] [-page N]")
	var handle string
	var page int
	fs.StringVar(&handle, "collection", "", "Collection handle (default: every collection)")
	fs.IntVar(&page, "page", 1, "Page number")
	parseFlags(fs, args)

	a, ctx, cancel := openCart()
	defer cancel()

	var (
		products []model.Product
		err      error
	)
	if handle == "" {
		products, err = a.Catalog.ListAllProducts(ctx)
	} else {
		products, err = a.Catalog.ListProducts(ctx, handle)
	}
	if err != nil {
		fatal("Listing products: %v", err)
	}

	p := catalog.Paginate(products, page, a.Config.PageSize)
	if asJSON {
		printJSON(p)
		return
	}
	for _, product := range p.Items {
		if quiet {
			fmt.Println(product.ID)
			continue
		}
		printProduct(product, a.Guard.IsLocked(product.ID))
	}
	if !quiet {
		fmt.Printf("%sPage %d of %d (%d products)%s\n", colorGray, p.Page, p.TotalPages, p.TotalItems, colorReset)
	}
}

func printProduct(p model.Product, locked bool) {
	fmt.Printf("%s%s%s  %s%s%s\n", colorBold, p.Title, colorReset, colorGreen, catalog.PriceRangeLabel(p.PriceRange), colorReset)
	fmt.Printf("  %s%s%s\n", colorGray, p.ID, colorReset)
	if desc := catalog.Truncate(p.Description, catalog.DescriptionPreviewLength); desc != "" {
		fmt.Printf("  %s\n", desc)
	}
	for _, v := range p.Variants {
		fmt.Printf("  - %s %s%s%s\n", catalog.VariantLabel(v), colorGray, v.ID, colorReset)
	}
	if locked {
		fmt.Printf("  %sCustom design already in cart%s\n", colorYellow, colorReset)
	}
	fmt.Println()
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func runCart(args []string) {
	fs := newFlagSet("cart", "[options]")
	parseFlags(fs, args)

	a, _, cancel := openCart()
	defer cancel()

	printCart(a.Reconciler.Projection(), a.Guard.Snapshot())
}

// attrFlag collects repeated -attr KEY=VALUE flags.
type attrFlag map[string]string

func (f attrFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f attrFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errors.New("attribute must have the form KEY=VALUE")
	}
	f[key] = value
	return nil
}

func runAdd(args []string) {
	fs := newFlagSet("add", "-variant ID [-product ID] [-design REF] [-attr KEY=VALUE]...")
	var productID, variantID, design string
	attrs := attrFlag{}
	fs.StringVar(&variantID, "variant", "", "Variant ID (required)")
	fs.StringVar(&productID, "product", "", "Product ID (required with -design)")
	fs.StringVar(&design, "design", "", "Custom design reference, e.g. the uploaded image URL")
	fs.Var(attrs, "attr", "Line attribute KEY=VALUE (repeatable)")
	parseFlags(fs, args)

	if variantID == "" {
		fs.Usage()
		os.Exit(1)
	}

	a, ctx, cancel := openCart()
	defer cancel()

	if design != "" {
		attrs[a.Guard.Marker()] = design
	}
	intent := model.LineIntent{ProductID: productID, VariantID: variantID}
	if len(attrs) > 0 {
		intent.Attributes = attrs
	}

	proj, err := a.Reconciler.AddLine(ctx, intent)
	if err != nil {
		fatal("Adding to cart: %v", err)
	}
	printSuccess("Added to cart")
	printCart(proj, a.Guard.Snapshot())
}

func runRemove(args []string) {
	fs := newFlagSet("remove", "-line ID")
	var lineID string
	fs.StringVar(&lineID, "line", "", "Cart line ID (required)")
	parseFlags(fs, args)

	if lineID == "" {
		fs.Usage()
		os.Exit(1)
	}

	a, ctx, cancel := openCart()
	defer cancel()

	proj, err := a.Reconciler.RemoveLine(ctx, lineID)
	if err != nil {
		fatal("Removing line: %v", err)
	}
	printSuccess("Line removed")
	printCart(proj, a.Guard.Snapshot())
}

func runClear(args []string) {
	fs := newFlagSet("clear", "[options]")
	parseFlags(fs, args)

	a, ctx, cancel := openCart()
	defer cancel()

	proj, err := a.Reconciler.ClearCart(ctx)
	if err != nil {
		fatal("Clearing cart: %v", err)
	}
	printSuccess("Cart cleared")
	printCart(proj, a.Guard.Snapshot())
}

func printCart(p model.Projection, locks []model.UploadLock) {
	if asJSON {
		printJSON(struct {
			model.Projection
			Locks []model.UploadLock `json:"locks"`
		}{p, locks})
		return
	}
	if quiet {
		fmt.Println(p.TotalQuantity)
		return
	}

	if p.IsEmpty() {
		fmt.Printf("%sYour cart is empty%s\n", colorGray, colorReset)
		return
	}
	for _, line := range p.Lines {
		fmt.Printf("  %s %s%s%s\n", catalog.CartLineLabel(line), colorGray, line.LineID, colorReset)
		for k, v := range line.Attributes {
			fmt.Printf("    %s: %s\n", k, v)
		}
	}
	fmt.Printf("  Items: %s%d%s\n", colorGreen, p.TotalQuantity, colorReset)
	for _, l := range locks {
		if l.Locked {
			fmt.Printf("  %sDesign locked:%s %s\n", colorYellow, colorReset, l.ProductID)
		}
	}
	fmt.Printf("  Checkout: %s%s%s\n", colorBlue, p.CheckoutURL, colorReset)
}

// =============================================================================
// HANDOFF COMMANDS
// =============================================================================

func runCheckout(args []string) {
	fs := newFlagSet("checkout", "[options]")
	parseFlags(fs, args)

	a, _, cancel := openCart()
	defer cancel()

	checkoutURL, ok := a.Reconciler.CheckoutURL()
	if !ok {
		fatal("%v", model.NewCartEmptyError())
	}
	if quiet {
		fmt.Println(checkoutURL)
		return
	}
	printSuccess("Ready for checkout")
	fmt.Printf("  %s%s%s\n", colorBlue, checkoutURL, colorReset)
}

func runTrack(args []string) {
	fs := newFlagSet("track", "-order NUMBER -email ADDRESS")
	var orderNumber, email string
	fs.StringVar(&orderNumber, "order", "", "Order number (required)")
	fs.StringVar(&email, "email", "", "Order email (required)")
	parseFlags(fs, args)

	cfg, err := config.Load(context.Background())
	if err != nil {
		fatal("Loading config: %v", err)
	}
	statusURL, err := orderstatus.StatusURL(cfg.Shop.Domain, orderNumber, email)
	if err != nil {
		fatal("%v", err)
	}
	if quiet {
		fmt.Println(statusURL)
		return
	}
	printSuccess("Order status page")
	fmt.Printf("  %s%s%s\n", colorBlue, statusURL, colorReset)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("Encoding output: %v", err)
	}
}

func printSuccess(format string, args ...any) {
	if !quiet && !asJSON {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
