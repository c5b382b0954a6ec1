package domain

import (
	"math/rand/v2"
	"strings"
)

// Difficulty is a problem's rated difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts "easy", "Medium", etc. An empty string yields "" with no error.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	}
	return "", false
}

// NeetCode150 is the technical interview question bank.
var NeetCode150 = []ProblemInfo{
	// Arrays & Hashing
	{ID: 217, Name: "Contains Duplicate", Difficulty: DifficultyEasy, Category: "Arrays & Hashing"},
	{ID: 242, Name: "Valid Anagram", Difficulty: DifficultyEasy, Category: "Arrays & Hashing"},
	{ID: 1, Name: "Two Sum", Difficulty: DifficultyEasy, Category: "Arrays & Hashing"},
	{ID: 49, Name: "Group Anagrams", Difficulty: DifficultyMedium, Category: "Arrays & Hashing"},
	{ID: 347, Name: "Top K Frequent Elements", Difficulty: DifficultyMedium, Category: "Arrays & Hashing"},
	{ID: 238, Name: "Product of Array Except Self", Difficulty: DifficultyMedium, Category: "Arrays & Hashing"},
	{ID: 36, Name: "Valid Sudoku", Difficulty: DifficultyMedium, Category: "Arrays & Hashing"},
	{ID: 128, Name: "Longest Consecutive Sequence", Difficulty: DifficultyMedium, Category: "Arrays & Hashing"},

	// Two Pointers
	{ID: 125, Name: "Valid Palindrome", Difficulty: DifficultyEasy, Category: "Two Pointers"},
	{ID: 167, Name: "Two Sum II", Difficulty: DifficultyMedium, Category: "Two Pointers"},
	{ID: 15, Name: "3Sum", Difficulty: DifficultyMedium, Category: "Two Pointers"},
	{ID: 11, Name: "Container With Most Water", Difficulty: DifficultyMedium, Category: "Two Pointers"},
	{ID: 42, Name: "Trapping Rain Water", Difficulty: DifficultyHard, Category: "Two Pointers"},

	// Sliding Window
	{ID: 121, Name: "Best Time to Buy and Sell Stock", Difficulty: DifficultyEasy, Category: "Sliding Window"},
	{ID: 3, Name: "Longest Substring Without Repeating Characters", Difficulty: DifficultyMedium, Category: "Sliding Window"},
	{ID: 424, Name: "Longest Repeating Character Replacement", Difficulty: DifficultyMedium, Category: "Sliding Window"},
	{ID: 567, Name: "Permutation in String", Difficulty: DifficultyMedium, Category: "Sliding Window"},
	{ID: 76, Name: "Minimum Window Substring", Difficulty: DifficultyHard, Category: "Sliding Window"},
	{ID: 239, Name: "Sliding Window Maximum", Difficulty: DifficultyHard, Category: "Sliding Window"},

	// Stack
	{ID: 20, Name: "Valid Parentheses", Difficulty: DifficultyEasy, Category: "Stack"},
	{ID: 155, Name: "Min Stack", Difficulty: DifficultyMedium, Category: "Stack"},
	{ID: 150, Name: "Evaluate Reverse Polish Notation", Difficulty: DifficultyMedium, Category: "Stack"},
	{ID: 22, Name: "Generate Parentheses", Difficulty: DifficultyMedium, Category: "Stack"},
	{ID: 739, Name: "Daily Temperatures", Difficulty: DifficultyMedium, Category: "Stack"},
	{ID: 853, Name: "Car Fleet", Difficulty: DifficultyMedium, Category: "Stack"},
	{ID: 84, Name: "Largest Rectangle in Histogram", Difficulty: DifficultyHard, Category: "Stack"},

	// Binary Search
	{ID: 704, Name: "Binary Search", Difficulty: DifficultyEasy, Category: "Binary Search"},
	{ID: 74, Name: "Search a 2D Matrix", Difficulty: DifficultyMedium, Category: "Binary Search"},
	{ID: 875, Name: "Koko Eating Bananas", Difficulty: DifficultyMedium, Category: "Binary Search"},
	{ID: 33, Name: "Search in Rotated Sorted Array", Difficulty: DifficultyMedium, Category: "Binary Search"},
	{ID: 153, Name: "Find Minimum in Rotated Sorted Array", Difficulty: DifficultyMedium, Category: "Binary Search"},
	{ID: 981, Name: "Time Based Key-Value Store", Difficulty: DifficultyMedium, Category: "Binary Search"},
	{ID: 4, Name: "Median of Two Sorted Arrays", Difficulty: DifficultyHard, Category: "Binary Search"},

	// Linked List
	{ID: 206, Name: "Reverse Linked List", Difficulty: DifficultyEasy, Category: "Linked List"},
	{ID: 21, Name: "Merge Two Sorted Lists", Difficulty: DifficultyEasy, Category: "Linked List"},
	{ID: 143, Name: "Reorder List", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 19, Name: "Remove Nth Node From End of List", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 138, Name: "Copy List with Random Pointer", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 2, Name: "Add Two Numbers", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 141, Name: "Linked List Cycle", Difficulty: DifficultyEasy, Category: "Linked List"},
	{ID: 287, Name: "Find the Duplicate Number", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 146, Name: "LRU Cache", Difficulty: DifficultyMedium, Category: "Linked List"},
	{ID: 23, Name: "Merge K Sorted Lists", Difficulty: DifficultyHard, Category: "Linked List"},
	{ID: 25, Name: "Reverse Nodes in K-Group", Difficulty: DifficultyHard, Category: "Linked List"},

	// Trees
	{ID: 226, Name: "Invert Binary Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 104, Name: "Maximum Depth of Binary Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 543, Name: "Diameter of Binary Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 110, Name: "Balanced Binary Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 100, Name: "Same Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 572, Name: "Subtree of Another Tree", Difficulty: DifficultyEasy, Category: "Trees"},
	{ID: 235, Name: "Lowest Common Ancestor of a BST", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 102, Name: "Binary Tree Level Order Traversal", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 199, Name: "Binary Tree Right Side View", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 1448, Name: "Count Good Nodes in Binary Tree", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 98, Name: "Validate Binary Search Tree", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 230, Name: "Kth Smallest Element in a BST", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 105, Name: "Construct Binary Tree from Preorder and Inorder", Difficulty: DifficultyMedium, Category: "Trees"},
	{ID: 124, Name: "Binary Tree Maximum Path Sum", Difficulty: DifficultyHard, Category: "Trees"},
	{ID: 297, Name: "Serialize and Deserialize Binary Tree", Difficulty: DifficultyHard, Category: "Trees"},

	// Tries
	{ID: 208, Name: "Implement Trie (Prefix Tree)", Difficulty: DifficultyMedium, Category: "Tries"},
	{ID: 211, Name: "Design Add and Search Words Data Structure", Difficulty: DifficultyMedium, Category: "Tries"},
	{ID: 212, Name: "Word Search II", Difficulty: DifficultyHard, Category: "Tries"},

	// Heap
	{ID: 703, Name: "Kth Largest Element in a Stream", Difficulty: DifficultyEasy, Category: "Heap"},
	{ID: 1046, Name: "Last Stone Weight", Difficulty: DifficultyEasy, Category: "Heap"},
	{ID: 973, Name: "K Closest Points to Origin", Difficulty: DifficultyMedium, Category: "Heap"},
	{ID: 215, Name: "Kth Largest Element in an Array", Difficulty: DifficultyMedium, Category: "Heap"},
	{ID: 621, Name: "Task Scheduler", Difficulty: DifficultyMedium, Category: "Heap"},
	{ID: 355, Name: "Design Twitter", Difficulty: DifficultyMedium, Category: "Heap"},
	{ID: 295, Name: "Find Median from Data Stream", Difficulty: DifficultyHard, Category: "Heap"},

	// Backtracking
	{ID: 78, Name: "Subsets", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 39, Name: "Combination Sum", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 46, Name: "Permutations", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 90, Name: "Subsets II", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 40, Name: "Combination Sum II", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 79, Name: "Word Search", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 131, Name: "Palindrome Partitioning", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 17, Name: "Letter Combinations of a Phone Number", Difficulty: DifficultyMedium, Category: "Backtracking"},
	{ID: 51, Name: "N-Queens", Difficulty: DifficultyHard, Category: "Backtracking"},

	// Graphs
	{ID: 200, Name: "Number of Islands", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 133, Name: "Clone Graph", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 695, Name: "Max Area of Island", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 417, Name: "Pacific Atlantic Water Flow", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 130, Name: "Surrounded Regions", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 994, Name: "Rotting Oranges", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 286, Name: "Walls and Gates", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 207, Name: "Course Schedule", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 210, Name: "Course Schedule II", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 684, Name: "Redundant Connection", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 323, Name: "Number of Connected Components in Undirected Graph", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 261, Name: "Graph Valid Tree", Difficulty: DifficultyMedium, Category: "Graphs"},
	{ID: 127, Name: "Word Ladder", Difficulty: DifficultyHard, Category: "Graphs"},

	// Advanced Graphs
	{ID: 332, Name: "Reconstruct Itinerary", Difficulty: DifficultyHard, Category: "Advanced Graphs"},
	{ID: 1584, Name: "Min Cost to Connect All Points", Difficulty: DifficultyMedium, Category: "Advanced Graphs"},
	{ID: 743, Name: "Network Delay Time", Difficulty: DifficultyMedium, Category: "Advanced Graphs"},
	{ID: 787, Name: "Cheapest Flights Within K Stops", Difficulty: DifficultyMedium, Category: "Advanced Graphs"},
	{ID: 269, Name: "Alien Dictionary", Difficulty: DifficultyHard, Category: "Advanced Graphs"},

	// 1-D DP
	{ID: 70, Name: "Climbing Stairs", Difficulty: DifficultyEasy, Category: "1-D DP"},
	{ID: 746, Name: "Min Cost Climbing Stairs", Difficulty: DifficultyEasy, Category: "1-D DP"},
	{ID: 198, Name: "House Robber", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 213, Name: "House Robber II", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 5, Name: "Longest Palindromic Substring", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 647, Name: "Palindromic Substrings", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 91, Name: "Decode Ways", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 322, Name: "Coin Change", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 152, Name: "Maximum Product Subarray", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 139, Name: "Word Break", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 300, Name: "Longest Increasing Subsequence", Difficulty: DifficultyMedium, Category: "1-D DP"},
	{ID: 416, Name: "Partition Equal Subset Sum", Difficulty: DifficultyMedium, Category: "1-D DP"},

	// 2-D DP
	{ID: 62, Name: "Unique Paths", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 1143, Name: "Longest Common Subsequence", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 309, Name: "Best Time to Buy and Sell Stock with Cooldown", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 518, Name: "Coin Change II", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 494, Name: "Target Sum", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 97, Name: "Interleaving String", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 329, Name: "Longest Increasing Path in a Matrix", Difficulty: DifficultyHard, Category: "2-D DP"},
	{ID: 115, Name: "Distinct Subsequences", Difficulty: DifficultyHard, Category: "2-D DP"},
	{ID: 72, Name: "Edit Distance", Difficulty: DifficultyMedium, Category: "2-D DP"},
	{ID: 312, Name: "Burst Balloons", Difficulty: DifficultyHard, Category: "2-D DP"},
	{ID: 10, Name: "Regular Expression Matching", Difficulty: DifficultyHard, Category: "2-D DP"},

	// Greedy
	{ID: 53, Name: "Maximum Subarray", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 55, Name: "Jump Game", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 45, Name: "Jump Game II", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 134, Name: "Gas Station", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 846, Name: "Hand of Straights", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 1899, Name: "Merge Triplets to Form Target Triplet", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 763, Name: "Partition Labels", Difficulty: DifficultyMedium, Category: "Greedy"},
	{ID: 678, Name: "Valid Parenthesis String", Difficulty: DifficultyMedium, Category: "Greedy"},

	// Intervals
	{ID: 57, Name: "Insert Interval", Difficulty: DifficultyMedium, Category: "Intervals"},
	{ID: 56, Name: "Merge Intervals", Difficulty: DifficultyMedium, Category: "Intervals"},
	{ID: 435, Name: "Non-overlapping Intervals", Difficulty: DifficultyMedium, Category: "Intervals"},
	{ID: 252, Name: "Meeting Rooms", Difficulty: DifficultyEasy, Category: "Intervals"},
	{ID: 253, Name: "Meeting Rooms II", Difficulty: DifficultyMedium, Category: "Intervals"},
	{ID: 1851, Name: "Minimum Interval to Include Each Query", Difficulty: DifficultyHard, Category: "Intervals"},

	// Math & Geometry
	{ID: 48, Name: "Rotate Image", Difficulty: DifficultyMedium, Category: "Math & Geometry"},
	{ID: 54, Name: "Spiral Matrix", Difficulty: DifficultyMedium, Category: "Math & Geometry"},
	{ID: 73, Name: "Set Matrix Zeroes", Difficulty: DifficultyMedium, Category: "Math & Geometry"},
	{ID: 202, Name: "Happy Number", Difficulty: DifficultyEasy, Category: "Math & Geometry"},
	{ID: 66, Name: "Plus One", Difficulty: DifficultyEasy, Category: "Math & Geometry"},
	{ID: 50, Name: "Pow(x, n)", Difficulty: DifficultyMedium, Category: "Math & Geometry"},
	{ID: 43, Name: "Multiply Strings", Difficulty: DifficultyMedium, Category: "Math & Geometry"},
	{ID: 2013, Name: "Detect Squares", Difficulty: DifficultyMedium, Category: "Math & Geometry"},

	// Bit Manipulation
	{ID: 136, Name: "Single Number", Difficulty: DifficultyEasy, Category: "Bit Manipulation"},
	{ID: 191, Name: "Number of 1 Bits", Difficulty: DifficultyEasy, Category: "Bit Manipulation"},
	{ID: 338, Name: "Counting Bits", Difficulty: DifficultyEasy, Category: "Bit Manipulation"},
	{ID: 190, Name: "Reverse Bits", Difficulty: DifficultyEasy, Category: "Bit Manipulation"},
	{ID: 268, Name: "Missing Number", Difficulty: DifficultyEasy, Category: "Bit Manipulation"},
	{ID: 371, Name: "Sum of Two Integers", Difficulty: DifficultyMedium, Category: "Bit Manipulation"},
	{ID: 7, Name: "Reverse Integer", Difficulty: DifficultyMedium, Category: "Bit Manipulation"},
}

// RandomProblem picks a problem, optionally restricted to one difficulty.
// An unmatched difficulty falls back to the whole catalog.
func RandomProblem(difficulty Difficulty) ProblemInfo {
	pool := NeetCode150
	if difficulty != "" {
		filtered := make([]ProblemInfo, 0, len(NeetCode150))
		for _, p := range NeetCode150 {
			if p.Difficulty == difficulty {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[rand.IntN(len(pool))]
}
