// Package neat implements the NeuroEvolution of Augmenting Topologies (NEAT)
// algorithm with multi-objective selection.
//
// NEAT evolves both the connection weights and the topology of neural
// networks, using innovation numbers as historical markers to align genes
// across genomes and speciation to protect structural novelty. When callers
// assign per-genome objective vectors instead of a scalar fitness, the
// population is ranked with NSGA-II non-dominated sorting and crowding
// distance before selection.
//
// Basic usage:
//
//	// Load configuration
//	config, err := neat.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create a new population
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	for gen := 0; gen < 100; gen++ {
//		for i := 0; i < pop.Size(); i++ {
//			net := nn.FromGenome(pop.Genome(i))
//			pop.SetFitness(i, evaluate(net))
//		}
//		pop.Evolve()
//	}
//
//	fmt.Println("best fitness:", pop.AllTimeBest.Fitness)
package neat
