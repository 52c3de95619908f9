package cfg

type Cfg struct {
	// Harvesting configuration
	DataDir      string
	ProductsDir  string
	Product      string
	BatchSize    int
	RequestDelay int
	HTTPTimeout  int

	// Daemon configuration
	Daemon            bool
	SchedulerInterval int
	WorkerCount       int
	Port              string
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
